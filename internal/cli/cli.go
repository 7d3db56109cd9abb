// Package cli provides the command line interface.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tyemirov/excerpt/internal/app"
	"github.com/tyemirov/excerpt/internal/config"
	"github.com/tyemirov/excerpt/internal/excerpt"
	"github.com/tyemirov/excerpt/internal/output"
	"github.com/tyemirov/excerpt/internal/services/clipboard"
	"github.com/tyemirov/excerpt/internal/services/server"
	"github.com/tyemirov/excerpt/internal/source"
	"github.com/tyemirov/excerpt/internal/tokenizer"
	"github.com/tyemirov/excerpt/internal/types"
	"github.com/tyemirov/excerpt/internal/utils"
)

const (
	configFlagName      = "config"
	formatFlagName      = "format"
	budgetFlagName      = "budget"
	lineNumbersFlagName = "line-numbers"
	languageFlagName    = "language"
	copyFlagName        = "copy"
	tokensFlagName      = "tokens"
	modelFlagName       = "model"
	repositoryFlagName  = "repo"
	referenceFlagName   = "ref"
	rootFlagName        = "root"
	startFlagName       = "start"
	endFlagName         = "end"
	aroundFlagName      = "around"
	offsetFlagName      = "offset"
	addressFlagName     = "address"
	globalFlagName      = "global"
	forceFlagName       = "force"

	configFlagDescription      = "path to a configuration file (defaults to ./" + utils.ConfigFileName + ")"
	formatFlagDescription      = "output format: raw, json or xml"
	budgetFlagDescription      = "maximum excerpt length in characters"
	lineNumbersFlagDescription = "prefix every line with its number"
	languageFlagDescription    = "code fence language (detected from the file name by default)"
	copyFlagDescription        = "copy the rendered output to the clipboard"
	tokensFlagDescription      = "include the token count of the excerpt"
	modelFlagDescription       = "tokenizer model to use for token counting"
	repositoryFlagDescription  = "read files from a GitHub repository given as owner/name"
	referenceFlagDescription   = "git reference of the GitHub repository"
	rootFlagDescription        = "directory that local paths are resolved against"
	startFlagDescription       = "first line of the range"
	endFlagDescription         = "last line of the range (defaults to --start)"
	aroundFlagDescription      = "lines shown on each side of the entity"
	offsetFlagDescription      = "shift the window down (positive) or up (negative)"
	addressFlagDescription     = "listen address for the command server"
	globalFlagDescription      = "write the global configuration instead of the local one"
	forceFlagDescription       = "overwrite an existing configuration file"

	rootUse              = "excerpt"
	rootShortDescription = "render budget-constrained source excerpts"
	rootLongDescription  = `excerpt renders a fenced, annotated excerpt of a source file that fits a character budget.
Select lines explicitly with "lines", around a named declaration with "entity", or many at once with "batch".
Use --format to select raw, json, or xml output and --repo to read from a GitHub repository.`
	versionTemplate = "excerpt version: {{.Version}}\n"

	linesUse              = "lines <path>"
	linesAlias            = "l"
	linesShortDescription = "render a line range (" + linesAlias + ")"
	linesUsageExample     = `  # Render lines 35 to 50
  excerpt lines src/structures/interaction.ts --start 35 --end 50

  # Render with line numbers in a 1000 character message
  excerpt lines main.go --start 10 --end 40 --line-numbers --budget 1000`

	entityUse              = "entity <path> <symbol>"
	entityAlias            = "e"
	entityShortDescription = "render the lines around a declaration (" + entityAlias + ")"
	entityUsageExample     = `  # Show a method with five lines of context
  excerpt entity internal/app/service.go Service.RenderLines --around 5

  # Resolve a TypeScript class member
  excerpt entity src/structures/interaction.ts Interaction#reply --repo Snazzah/slash-create`

	batchUse              = "batch [spec]..."
	batchAlias            = "b"
	batchShortDescription = "render several excerpts concurrently (" + batchAlias + ")"
	batchLongDescription  = `Render every specification in order. A specification is path:start-end, path:line or path#symbol.
Pass - to read specifications from standard input, one per line, or --manifest to read a YAML manifest.`
	manifestFlagName        = "manifest"
	manifestFlagDescription = "YAML manifest listing excerpts to render after the positional specifications"

	serveUse              = "serve"
	serveShortDescription = "serve the lines and entity commands over HTTP"
	serverListeningFormat = "excerpt server listening on http://%s\n"

	initUse              = "init"
	initShortDescription = "write the default configuration file"
	initWrittenFormat    = "configuration written to %s\n"

	defaultTokenizerModelName    = "gpt-4o"
	standardInputArgument        = "-"
	repositorySeparator          = "/"
	userAgentPrefix              = "excerpt/"
	githubTokenEnvironment       = "GITHUB_TOKEN"
	alternateTokenEnvironment    = "GH_TOKEN"
	invalidFormatMessage         = "invalid format value '%s'"
	invalidRepositoryFormat      = "invalid repository %q: expected owner/name"
	invalidStartMessage          = "--start must be a positive line number"
	loadConfigurationErrorFormat = "load configuration: %w"
	readSpecificationsFormat     = "read batch specifications: %w"
	noSpecificationsMessage      = "no batch specifications provided"
	copyFailedWarningMessage     = "failed to copy excerpt to the clipboard"
)

// isSupportedFormat reports whether the provided format is recognized.
func isSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatXML:
		return true
	default:
		return false
	}
}

// dependencies are the process-level collaborators injected into the commands.
type dependencies struct {
	logger           *zap.Logger
	copier           clipboard.Copier
	workingDirectory string
}

// Execute runs the excerpt application.
func Execute(logger *zap.Logger) error {
	rootCommand := createRootCommand(dependencies{logger: logger, copier: clipboard.NewService()})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// rootOptions stores the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath      string
	format          string
	budget          int
	lineNumbers     bool
	language        string
	copyToClipboard bool
	tokensEnabled   bool
	model           string
	repository      string
	reference       string
	root            string

	configuration config.ApplicationConfiguration
}

// resolvedOptions are the effective settings after merging flags over configuration.
type resolvedOptions struct {
	format          string
	copyToClipboard bool
	settings        app.Settings
}

// createRootCommand builds the root Cobra command.
func createRootCommand(deps dependencies) *cobra.Command {
	if deps.logger == nil {
		deps.logger = zap.NewNop()
	}
	options := &rootOptions{}

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		Version:      utils.GetApplicationVersion(),
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if command.Name() == initUse {
				return nil
			}
			loaded, loadError := config.LoadApplicationConfiguration(config.LoadOptions{
				WorkingDirectory: deps.workingDirectory,
				ExplicitFilePath: options.configPath,
			})
			if loadError != nil {
				return fmt.Errorf(loadConfigurationErrorFormat, loadError)
			}
			options.configuration = loaded
			return nil
		},
	}
	rootCommand.SetVersionTemplate(versionTemplate)

	persistentFlags := rootCommand.PersistentFlags()
	persistentFlags.StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	persistentFlags.StringVar(&options.format, formatFlagName, types.FormatRaw, formatFlagDescription)
	persistentFlags.IntVar(&options.budget, budgetFlagName, excerpt.DefaultBudget, budgetFlagDescription)
	registerBooleanFlag(persistentFlags, &options.lineNumbers, lineNumbersFlagName, false, lineNumbersFlagDescription)
	persistentFlags.StringVar(&options.language, languageFlagName, "", languageFlagDescription)
	registerBooleanFlag(persistentFlags, &options.copyToClipboard, copyFlagName, false, copyFlagDescription)
	registerBooleanFlag(persistentFlags, &options.tokensEnabled, tokensFlagName, false, tokensFlagDescription)
	persistentFlags.StringVar(&options.model, modelFlagName, defaultTokenizerModelName, modelFlagDescription)
	persistentFlags.StringVar(&options.repository, repositoryFlagName, "", repositoryFlagDescription)
	persistentFlags.StringVar(&options.reference, referenceFlagName, "", referenceFlagDescription)
	persistentFlags.StringVar(&options.root, rootFlagName, ".", rootFlagDescription)

	rootCommand.AddCommand(
		createLinesCommand(options, deps),
		createEntityCommand(options, deps),
		createBatchCommand(options, deps),
		createServeCommand(options, deps),
		createInitCommand(deps),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// createLinesCommand returns the lines subcommand.
func createLinesCommand(options *rootOptions, deps dependencies) *cobra.Command {
	var startLine, endLine int

	linesCommand := &cobra.Command{
		Use:     linesUse,
		Aliases: []string{linesAlias},
		Short:   linesShortDescription,
		Example: linesUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			if startLine < 1 {
				return errors.New(invalidStartMessage)
			}
			if !command.Flags().Changed(endFlagName) {
				endLine = startLine
			}
			resolved, resolveError := options.resolve(command.Flags())
			if resolveError != nil {
				return resolveError
			}
			service, serviceError := options.buildService(command.Flags(), deps)
			if serviceError != nil {
				return serviceError
			}
			request := app.LinesRequest{Path: arguments[0], Start: startLine, End: endLine}
			result, renderError := service.RenderLines(command.Context(), request, resolved.settings)
			return emitResult(command, deps, resolved, request.Path, result, renderError)
		},
	}
	linesCommand.Flags().IntVar(&startLine, startFlagName, 0, startFlagDescription)
	linesCommand.Flags().IntVar(&endLine, endFlagName, 0, endFlagDescription)
	_ = linesCommand.MarkFlagRequired(startFlagName)
	return linesCommand
}

// createEntityCommand returns the entity subcommand.
func createEntityCommand(options *rootOptions, deps dependencies) *cobra.Command {
	var around, offset int

	entityCommand := &cobra.Command{
		Use:     entityUse,
		Aliases: []string{entityAlias},
		Short:   entityShortDescription,
		Example: entityUsageExample,
		Args:    cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			resolved, resolveError := options.resolve(command.Flags())
			if resolveError != nil {
				return resolveError
			}
			applyWindowFlags(command.Flags(), options.configuration.Excerpt, around, offset, &resolved.settings)
			service, serviceError := options.buildService(command.Flags(), deps)
			if serviceError != nil {
				return serviceError
			}
			request := app.EntityRequest{Path: arguments[0], Symbol: arguments[1]}
			result, renderError := service.RenderEntity(command.Context(), request, resolved.settings)
			return emitResult(command, deps, resolved, request.Path, result, renderError)
		},
	}
	addWindowFlags(entityCommand.Flags(), &around, &offset)
	return entityCommand
}

// createBatchCommand returns the batch subcommand.
func createBatchCommand(options *rootOptions, deps dependencies) *cobra.Command {
	var around, offset int
	var manifestPath string

	batchCommand := &cobra.Command{
		Use:     batchUse,
		Aliases: []string{batchAlias},
		Short:   batchShortDescription,
		Long:    batchLongDescription,
		RunE: func(command *cobra.Command, arguments []string) error {
			specifications, readError := expandSpecifications(arguments, command.InOrStdin())
			if readError != nil {
				return readError
			}
			if manifestPath != "" {
				manifestSpecifications, manifestError := app.LoadBatchManifest(manifestPath)
				if manifestError != nil {
					return manifestError
				}
				specifications = append(specifications, manifestSpecifications...)
			}
			if len(specifications) == 0 {
				return errors.New(noSpecificationsMessage)
			}
			resolved, resolveError := options.resolve(command.Flags())
			if resolveError != nil {
				return resolveError
			}
			applyWindowFlags(command.Flags(), options.configuration.Excerpt, around, offset, &resolved.settings)
			service, serviceError := options.buildService(command.Flags(), deps)
			if serviceError != nil {
				return serviceError
			}
			items, batchError := service.RenderBatch(command.Context(), specifications, resolved.settings)
			if batchError != nil {
				return batchError
			}
			rendered, formatError := output.RenderBatch(resolved.format, items)
			if formatError != nil {
				return formatError
			}
			return emit(command, deps, resolved, rendered)
		},
	}
	addWindowFlags(batchCommand.Flags(), &around, &offset)
	batchCommand.Flags().StringVar(&manifestPath, manifestFlagName, "", manifestFlagDescription)
	return batchCommand
}

// createServeCommand returns the serve subcommand.
func createServeCommand(options *rootOptions, deps dependencies) *cobra.Command {
	var address string

	serveCommand := &cobra.Command{
		Use:   serveUse,
		Short: serveShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			resolved, resolveError := options.resolve(command.Flags())
			if resolveError != nil {
				return resolveError
			}
			applyWindowFlags(nil, options.configuration.Excerpt, 0, 0, &resolved.settings)
			service, serviceError := options.buildService(command.Flags(), deps)
			if serviceError != nil {
				return serviceError
			}
			listenAddress := stringSetting(command.Flags(), addressFlagName, address, options.configuration.Server.Address, "")
			ctx, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runCommandServer(ctx, command.OutOrStdout(), deps.logger, listenAddress, service, resolved)
		},
	}
	serveCommand.Flags().StringVar(&address, addressFlagName, "", addressFlagDescription)
	return serveCommand
}

// createInitCommand returns the init subcommand.
func createInitCommand(deps dependencies) *cobra.Command {
	var global, force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			writtenPath, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: deps.workingDirectory,
			})
			if initError != nil {
				return initError
			}
			_, writeError := fmt.Fprintf(command.OutOrStdout(), initWrittenFormat, writtenPath)
			return writeError
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return initCommand
}

func runCommandServer(ctx context.Context, writer io.Writer, logger *zap.Logger, address string, service *app.Service, defaults resolvedOptions) error {
	commandServer := server.NewServer(server.Config{
		Address:      address,
		Capabilities: serverCapabilities(),
		Executors:    serverCommandExecutors(service, defaults),
		Logger:       logger,
	})
	return commandServer.Run(ctx, func(boundAddress string) {
		fmt.Fprintf(writer, serverListeningFormat, boundAddress)
	})
}

func addWindowFlags(flagSet *pflag.FlagSet, around *int, offset *int) {
	flagSet.IntVar(around, aroundFlagName, app.DefaultRadius, aroundFlagDescription)
	flagSet.IntVar(offset, offsetFlagName, 0, offsetFlagDescription)
}

func applyWindowFlags(flagSet *pflag.FlagSet, configured config.ExcerptConfiguration, around int, offset int, settings *app.Settings) {
	settings.Radius = intSetting(flagSet, aroundFlagName, around, configured.Around, app.DefaultRadius)
	settings.Offset = intSetting(flagSet, offsetFlagName, offset, configured.Offset, 0)
}

// resolve merges explicitly set flags over the loaded configuration.
func (options *rootOptions) resolve(flagSet *pflag.FlagSet) (resolvedOptions, error) {
	configured := options.configuration.Excerpt
	format := strings.ToLower(stringSetting(flagSet, formatFlagName, options.format, configured.Format, types.FormatRaw))
	if !isSupportedFormat(format) {
		return resolvedOptions{}, fmt.Errorf(invalidFormatMessage, format)
	}
	settings := app.DefaultSettings()
	settings.Budget = intSetting(flagSet, budgetFlagName, options.budget, configured.Budget, excerpt.DefaultBudget)
	settings.IncludeLineNumbers = boolSetting(flagSet, lineNumbersFlagName, options.lineNumbers, configured.LineNumbers, false)
	settings.Language = stringSetting(flagSet, languageFlagName, options.language, configured.Language, "")
	return resolvedOptions{
		format:          format,
		copyToClipboard: boolSetting(flagSet, copyFlagName, options.copyToClipboard, configured.Clipboard, false),
		settings:        settings,
	}, nil
}

// buildService wires the document source and the optional token counter.
func (options *rootOptions) buildService(flagSet *pflag.FlagSet, deps dependencies) (*app.Service, error) {
	documentSource, sourceError := options.buildSource(flagSet)
	if sourceError != nil {
		return nil, sourceError
	}
	var serviceOptions []app.Option
	tokenConfiguration := options.configuration.Tokens
	if boolSetting(flagSet, tokensFlagName, options.tokensEnabled, tokenConfiguration.Enabled, false) {
		model := stringSetting(flagSet, modelFlagName, options.model, tokenConfiguration.Model, defaultTokenizerModelName)
		counter, counterError := tokenizer.NewCounter(tokenizer.Config{Model: model})
		if counterError != nil {
			return nil, counterError
		}
		serviceOptions = append(serviceOptions, app.WithTokenCounter(counter))
	}
	return app.NewService(documentSource, deps.logger, serviceOptions...), nil
}

func (options *rootOptions) buildSource(flagSet *pflag.FlagSet) (source.Source, error) {
	githubConfiguration := options.configuration.GitHub
	configuredRepository := ""
	if githubConfiguration.Owner != "" && githubConfiguration.Repository != "" {
		configuredRepository = githubConfiguration.Owner + repositorySeparator + githubConfiguration.Repository
	}
	repository := stringSetting(flagSet, repositoryFlagName, options.repository, configuredRepository, "")
	if repository == "" {
		return source.NewFileSource(options.root), nil
	}
	owner, name, found := strings.Cut(repository, repositorySeparator)
	if !found || owner == "" || name == "" || strings.Contains(name, repositorySeparator) {
		return nil, fmt.Errorf(invalidRepositoryFormat, repository)
	}
	reference := stringSetting(flagSet, referenceFlagName, options.reference, githubConfiguration.Reference, "")
	token := githubConfiguration.Token
	if token == "" {
		token = os.Getenv(githubTokenEnvironment)
	}
	if token == "" {
		token = os.Getenv(alternateTokenEnvironment)
	}
	return source.NewGitHubSource(nil, owner, name, reference).
		WithAPIBase(githubConfiguration.APIBase).
		WithWebBase(githubConfiguration.WebBase).
		WithTimeout(githubConfiguration.Timeout).
		WithUserAgent(userAgentPrefix + utils.GetApplicationVersion()).
		WithAuthorizationToken(token), nil
}

func emitResult(command *cobra.Command, deps dependencies, resolved resolvedOptions, documentPath string, result types.ExcerptOutput, renderError error) error {
	var rendered string
	var formatError error
	if renderError != nil {
		var boundsError *excerpt.OutOfBoundsError
		if !errors.As(renderError, &boundsError) {
			return renderError
		}
		rendered, formatError = output.RenderFailover(resolved.format, output.NewFailoverOutput(documentPath, boundsError))
	} else {
		rendered, formatError = output.RenderExcerpt(resolved.format, result)
	}
	if formatError != nil {
		return formatError
	}
	return emit(command, deps, resolved, rendered)
}

func emit(command *cobra.Command, deps dependencies, resolved resolvedOptions, rendered string) error {
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	if _, writeError := io.WriteString(command.OutOrStdout(), rendered); writeError != nil {
		return writeError
	}
	if resolved.copyToClipboard && deps.copier != nil {
		if copyError := deps.copier.Copy(rendered); copyError != nil {
			deps.logger.Warn(copyFailedWarningMessage, zap.Error(copyError))
		}
	}
	return nil
}

// expandSpecifications replaces a "-" argument with the non-empty lines read from input.
func expandSpecifications(arguments []string, input io.Reader) ([]string, error) {
	specifications := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		if argument != standardInputArgument {
			specifications = append(specifications, argument)
			continue
		}
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				specifications = append(specifications, line)
			}
		}
		if scanError := scanner.Err(); scanError != nil {
			return nil, fmt.Errorf(readSpecificationsFormat, scanError)
		}
	}
	return specifications, nil
}

func stringSetting(flagSet *pflag.FlagSet, name string, flagValue string, configured string, fallback string) string {
	if flagSet != nil && flagSet.Changed(name) {
		return flagValue
	}
	if configured != "" {
		return configured
	}
	return fallback
}

func intSetting(flagSet *pflag.FlagSet, name string, flagValue int, configured *int, fallback int) int {
	if flagSet != nil && flagSet.Changed(name) {
		return flagValue
	}
	if configured != nil {
		return *configured
	}
	return fallback
}

func boolSetting(flagSet *pflag.FlagSet, name string, flagValue bool, configured *bool, fallback bool) bool {
	if flagSet != nil && flagSet.Changed(name) {
		return flagValue
	}
	if configured != nil {
		return *configured
	}
	return fallback
}
