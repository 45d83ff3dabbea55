package gha

import (
	"context"
	"net/http"

	"github.com/google/go-github/v29/github"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Client is a minimal GitHub API client, used to look up PR labels when the
// workflow does not supply them in the environment.
type Client struct {
	RepoOwner string
	RepoName  string

	client *github.Client
	ctx    context.Context
}

// NewClient returns a Client for the given repo. An empty token produces an
// unauthenticated client, which is sufficient for public repos.
func NewClient(ctx context.Context, repoOwner, repoName, token string) *Client {
	var httpClient *http.Client
	if token != "" {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	return &Client{
		RepoOwner: repoOwner,
		RepoName:  repoName,
		client:    github.NewClient(httpClient),
		ctx:       ctx,
	}
}

// PullRequestLabels returns the names of the labels applied to the given
// pull request.
func (c *Client) PullRequestLabels(pullRequestNum int) ([]string, error) {
	issue, resp, err := c.client.Issues.Get(c.ctx, c.RepoOwner, c.RepoName, pullRequestNum)
	if err != nil {
		return nil, errors.Wrap(err, "Failed doing issues.get")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("Unexpected status code %d from issues.get.", resp.StatusCode)
	}
	rv := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		rv = append(rv, label.GetName())
	}
	return rv, nil
}
