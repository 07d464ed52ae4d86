package gitrepo

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	httpsSchemeConstant                 = "https"
	pathSeparatorConstant               = "/"
	gitSuffixConstant                   = ".git"
	tokenUserNameConstant               = "x-access-token"
	redactedTokenConstant               = "***"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	invalidRepositoryMessageConstant    = "repository must be in owner/name form"
	requiredValueMessageConstant        = "value required"
)

// RemoteURL represents a hosted repository addressed over HTTPS.
type RemoteURL struct {
	Host       string
	Owner      string
	Repository string
}

// RemoteURLParseError indicates a repository identifier could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// ParseRepositoryIdentifier converts an owner/name identifier into a RemoteURL on the host.
func ParseRepositoryIdentifier(host string, repository string) (RemoteURL, error) {
	trimmedHost := strings.TrimSpace(host)
	if len(trimmedHost) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: host, Message: requiredValueMessageConstant}
	}
	trimmedRepository := strings.Trim(strings.TrimSpace(repository), pathSeparatorConstant)
	if len(trimmedRepository) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: repository, Message: requiredValueMessageConstant}
	}

	segments := strings.Split(trimmedRepository, pathSeparatorConstant)
	if len(segments) != 2 {
		return RemoteURL{}, RemoteURLParseError{Input: repository, Message: invalidRepositoryMessageConstant}
	}
	owner := strings.TrimSpace(segments[0])
	name := strings.TrimSuffix(strings.TrimSpace(segments[1]), gitSuffixConstant)
	if len(owner) == 0 || len(name) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: repository, Message: invalidRepositoryMessageConstant}
	}
	return RemoteURL{Host: trimmedHost, Owner: owner, Repository: name}, nil
}

// String returns the URL without credentials.
func (remote RemoteURL) String() string {
	return remote.build(nil)
}

// Authenticated returns the URL carrying the token as the password of the access-token user.
func (remote RemoteURL) Authenticated(token string) string {
	if len(token) == 0 {
		return remote.String()
	}
	return remote.build(url.UserPassword(tokenUserNameConstant, token))
}

// Redacted returns the authenticated URL form with the token masked.
func (remote RemoteURL) Redacted() string {
	return fmt.Sprintf("%s://%s:%s@%s/%s/%s", httpsSchemeConstant, tokenUserNameConstant, redactedTokenConstant, remote.Host, remote.Owner, remote.Repository)
}

func (remote RemoteURL) build(credentials *url.Userinfo) string {
	location := url.URL{
		Scheme: httpsSchemeConstant,
		User:   credentials,
		Host:   remote.Host,
		Path:   pathSeparatorConstant + remote.Owner + pathSeparatorConstant + remote.Repository,
	}
	return location.String()
}
