package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	encodingBase64            = "base64"
	contentTypeFile           = "file"
	defaultAPITimeout         = 30 * time.Second
	defaultReference          = "HEAD"
	defaultAPIBaseURL         = "https://api.github.com"
	defaultWebBaseURL         = "https://github.com"
	defaultUserAgent          = "excerpt-github-source"
	headerAuthorization       = "Authorization"
	headerAccept              = "Accept"
	headerUserAgent           = "User-Agent"
	headerGitHubAPIVersion    = "X-GitHub-Api-Version"
	acceptGitHubJSON          = "application/vnd.github+json"
	githubAPIVersionValue     = "2022-11-28"
	authorizationBearerPrefix = "Bearer "
	authorizationTokenPrefix  = "token "
	errorBodyLimit            = 8 * 1024
	unexpectedStatusFormat    = "unexpected status %d for %s: %s"
	unsupportedEncodingFormat = "unsupported encoding %s for %s"
	notAFileFormat            = "%s is a %s, not a file"
	decodeContentFormat       = "decode content for %s: %w"
)

var (
	errMissingOwner      = errors.New("repository owner is required")
	errMissingRepository = errors.New("repository name is required")
	errMissingPath       = errors.New("document path is required")
)

type httpClient interface {
	Do(request *http.Request) (*http.Response, error)
}

type apiContent struct {
	Type        string `json:"type"`
	Path        string `json:"path"`
	DownloadURL string `json:"download_url"`
	Content     string `json:"content"`
	Encoding    string `json:"encoding"`
}

// GitHubSource fetches documents through the GitHub contents API at a fixed reference.
type GitHubSource struct {
	client                   httpClient
	owner                    string
	repository               string
	reference                string
	apiBase                  string
	webBase                  string
	userAgent                string
	authorizationHeaderValue string
}

// NewGitHubSource creates a source for owner/repository at reference.
// A nil client gets an http.Client with a 30 second timeout.
func NewGitHubSource(client httpClient, owner string, repository string, reference string) GitHubSource {
	if client == nil {
		client = &http.Client{Timeout: defaultAPITimeout}
	}
	if strings.TrimSpace(reference) == "" {
		reference = defaultReference
	}
	return GitHubSource{
		client:     client,
		owner:      owner,
		repository: repository,
		reference:  reference,
		apiBase:    defaultAPIBaseURL,
		webBase:    defaultWebBaseURL,
		userAgent:  defaultUserAgent,
	}
}

// WithAPIBase overrides the API endpoint, for GitHub Enterprise or tests.
func (githubSource GitHubSource) WithAPIBase(base string) GitHubSource {
	if base == "" {
		return githubSource
	}
	githubSource.apiBase = strings.TrimRight(base, "/")
	return githubSource
}

// WithWebBase overrides the host used for deep links.
func (githubSource GitHubSource) WithWebBase(base string) GitHubSource {
	if base == "" {
		return githubSource
	}
	githubSource.webBase = strings.TrimRight(base, "/")
	return githubSource
}

// WithUserAgent overrides the User-Agent sent with API requests.
func (githubSource GitHubSource) WithUserAgent(agent string) GitHubSource {
	if agent == "" {
		return githubSource
	}
	githubSource.userAgent = agent
	return githubSource
}

// WithTimeout bounds each request made through an *http.Client. The client is
// copied, so sources sharing it keep their own timeout. Other clients are left as is.
func (githubSource GitHubSource) WithTimeout(duration time.Duration) GitHubSource {
	if duration <= 0 {
		return githubSource
	}
	if standardClient, ok := githubSource.client.(*http.Client); ok {
		clientCopy := *standardClient
		clientCopy.Timeout = duration
		githubSource.client = &clientCopy
	}
	return githubSource
}

// WithAuthorizationToken configures the source to authenticate GitHub API calls.
func (githubSource GitHubSource) WithAuthorizationToken(token string) GitHubSource {
	githubSource.authorizationHeaderValue = formatAuthorizationHeaderValue(token)
	return githubSource
}

// Fetch downloads path at the configured reference.
func (githubSource GitHubSource) Fetch(ctx context.Context, path string) (Document, error) {
	if githubSource.owner == "" {
		return Document{}, errMissingOwner
	}
	if githubSource.repository == "" {
		return Document{}, errMissingRepository
	}
	normalizedPath := strings.Trim(strings.TrimSpace(path), "/")
	if normalizedPath == "" {
		return Document{}, errMissingPath
	}

	apiURL, buildErr := githubSource.buildContentsURL(normalizedPath)
	if buildErr != nil {
		return Document{}, buildErr
	}
	responseBody, requestErr := githubSource.get(ctx, apiURL, normalizedPath)
	if requestErr != nil {
		return Document{}, requestErr
	}
	var item apiContent
	if decodeErr := json.Unmarshal(responseBody, &item); decodeErr != nil {
		return Document{}, fmt.Errorf(decodeContentFormat, normalizedPath, decodeErr)
	}
	if item.Type != "" && item.Type != contentTypeFile {
		return Document{}, fmt.Errorf(notAFileFormat, normalizedPath, item.Type)
	}

	text, contentErr := githubSource.decodeContent(ctx, item, normalizedPath)
	if contentErr != nil {
		return Document{}, contentErr
	}
	return Document{Path: normalizedPath, Revision: githubSource.reference, Text: text}, nil
}

// LinkTarget returns the blob URL of path with a line range anchor.
func (githubSource GitHubSource) LinkTarget(path string, start int, end int) string {
	segments := []string{githubSource.owner, githubSource.repository, "blob", githubSource.reference}
	segments = append(segments, strings.Split(strings.Trim(path, "/"), "/")...)
	escapedSegments := make([]string, len(segments))
	for index, segment := range segments {
		escapedSegments[index] = url.PathEscape(segment)
	}
	return githubSource.webBase + "/" + strings.Join(escapedSegments, "/") + "#" + fmt.Sprintf(lineAnchorFormat, start, end)
}

func (githubSource GitHubSource) decodeContent(ctx context.Context, item apiContent, path string) (string, error) {
	if item.Encoding != "" && item.Encoding != encodingBase64 {
		return "", fmt.Errorf(unsupportedEncodingFormat, item.Encoding, path)
	}
	if item.Content == "" && item.DownloadURL != "" {
		downloaded, downloadErr := githubSource.get(ctx, item.DownloadURL, path)
		if downloadErr != nil {
			return "", downloadErr
		}
		return string(downloaded), nil
	}
	if item.Encoding != encodingBase64 {
		return item.Content, nil
	}
	// The API wraps base64 content at 60 columns.
	contentBytes, decodeErr := base64.StdEncoding.DecodeString(strings.ReplaceAll(item.Content, "\n", ""))
	if decodeErr != nil {
		return "", fmt.Errorf(decodeContentFormat, path, decodeErr)
	}
	return string(contentBytes), nil
}

func (githubSource GitHubSource) get(ctx context.Context, rawURL string, path string) ([]byte, error) {
	request, requestErr := githubSource.buildRequest(ctx, rawURL)
	if requestErr != nil {
		return nil, requestErr
	}
	response, responseErr := githubSource.client.Do(request)
	if responseErr != nil {
		return nil, responseErr
	}
	defer response.Body.Close()
	if response.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf(missingDocumentFormat, ErrDocumentNotFound, path)
	}
	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, errorBodyLimit))
		return nil, fmt.Errorf(unexpectedStatusFormat, response.StatusCode, rawURL, string(body))
	}
	return io.ReadAll(response.Body)
}

func (githubSource GitHubSource) buildRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if requestErr != nil {
		return nil, requestErr
	}
	if githubSource.userAgent != "" {
		request.Header.Set(headerUserAgent, githubSource.userAgent)
	}
	if githubSource.authorizationHeaderValue != "" {
		request.Header.Set(headerAuthorization, githubSource.authorizationHeaderValue)
	}
	request.Header.Set(headerAccept, acceptGitHubJSON)
	request.Header.Set(headerGitHubAPIVersion, githubAPIVersionValue)
	return request, nil
}

func (githubSource GitHubSource) buildContentsURL(itemPath string) (string, error) {
	parsedURL, parseErr := url.Parse(githubSource.apiBase)
	if parseErr != nil {
		return "", parseErr
	}
	var builder strings.Builder
	builder.WriteString(strings.TrimSuffix(parsedURL.Path, "/"))
	builder.WriteString("/repos/")
	builder.WriteString(url.PathEscape(githubSource.owner))
	builder.WriteByte('/')
	builder.WriteString(url.PathEscape(githubSource.repository))
	builder.WriteString("/contents")
	for _, segment := range strings.Split(itemPath, "/") {
		if segment == "" {
			continue
		}
		builder.WriteByte('/')
		builder.WriteString(url.PathEscape(segment))
	}
	parsedURL.Path = builder.String()
	query := parsedURL.Query()
	query.Set("ref", githubSource.reference)
	parsedURL.RawQuery = query.Encode()
	return parsedURL.String(), nil
}

func formatAuthorizationHeaderValue(rawToken string) string {
	trimmed := strings.TrimSpace(rawToken)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, strings.ToLower(authorizationBearerPrefix)) || strings.HasPrefix(lower, strings.ToLower(authorizationTokenPrefix)) {
		return trimmed
	}
	if strings.Contains(trimmed, ".") {
		return authorizationBearerPrefix + trimmed
	}
	return authorizationTokenPrefix + trimmed
}

var _ Source = GitHubSource{}
