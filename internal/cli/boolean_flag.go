package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	booleanFlagTypeName        = "bool"
	booleanFlagTrueLiteral     = "true"
	booleanFlagAcceptedValues  = "true, false, yes, no, on, off, 1, 0"
	booleanFlagInvalidValueFmt = "invalid boolean value %q for --%s; accepted values: %s"
)

var booleanFlagLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// booleanFlagValue accepts yes/no and on/off literals in addition to true/false.
type booleanFlagValue struct {
	target  *bool
	flagKey string
}

func (value *booleanFlagValue) Set(input string) error {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		normalized = booleanFlagTrueLiteral
	}
	parsed, ok := booleanFlagLiterals[normalized]
	if !ok || value.target == nil {
		return fmt.Errorf(booleanFlagInvalidValueFmt, input, value.flagKey, booleanFlagAcceptedValues)
	}
	*value.target = parsed
	return nil
}

func (value *booleanFlagValue) String() string {
	if value == nil || value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *booleanFlagValue) Type() string {
	return booleanFlagTypeName
}

func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	if flagSet == nil || target == nil {
		return
	}
	*target = defaultValue
	flagSet.Var(&booleanFlagValue{target: target, flagKey: name}, name, usage)
	if lookup := flagSet.Lookup(name); lookup != nil {
		lookup.DefValue = strconv.FormatBool(defaultValue)
		lookup.NoOptDefVal = booleanFlagTrueLiteral
	}
}

// normalizeBooleanFlagArguments rewrites "--flag no" into "--flag=no" for every
// boolean flag of the command tree. NoOptDefVal flags never consume the next argument.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	booleanFlags := map[string]struct{}{}
	collectBooleanFlagNames(command, booleanFlags)
	if len(booleanFlags) == 0 {
		return arguments
	}
	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		currentArgument := arguments[index]
		if currentArgument == "--" {
			return append(normalized, arguments[index:]...)
		}
		normalized = append(normalized, currentArgument)
		if !strings.HasPrefix(currentArgument, "--") || strings.Contains(currentArgument, "=") || index+1 >= len(arguments) {
			continue
		}
		flagName := strings.TrimPrefix(currentArgument, "--")
		if _, isBoolean := booleanFlags[flagName]; !isBoolean {
			continue
		}
		literal := strings.ToLower(strings.TrimSpace(arguments[index+1]))
		if _, valid := booleanFlagLiterals[literal]; valid {
			normalized[len(normalized)-1] = fmt.Sprintf("--%s=%s", flagName, arguments[index+1])
			index++
		}
	}
	return normalized
}

func collectBooleanFlagNames(command *cobra.Command, target map[string]struct{}) {
	if command == nil {
		return
	}
	visit := func(flag *pflag.Flag) {
		if flag.Value != nil && flag.Value.Type() == booleanFlagTypeName {
			target[flag.Name] = struct{}{}
		}
	}
	command.PersistentFlags().VisitAll(visit)
	command.Flags().VisitAll(visit)
	for _, child := range command.Commands() {
		collectBooleanFlagNames(child, target)
	}
}
