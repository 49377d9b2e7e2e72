package reporters

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/macdems/buildbot/internal/buildsets"
	"github.com/macdems/buildbot/internal/models"
)

// statusContext is the context string attached to pushed commit statuses.
const statusContext = "buildbot/buildset"

// repoStatuses abstracts the GitHub API surface we use, enabling test mocks.
type repoStatuses interface {
	CreateStatus(ctx context.Context, owner, repo, ref string, status *github.RepoStatus) (*github.RepoStatus, *github.Response, error)
}

// GitHubStatus pushes a commit status for every sourcestamp revision of a
// completed buildset.
type GitHubStatus struct {
	db       *gorm.DB
	statuses repoStatuses
	owner    string
	repo     string
}

// GitHubStatusOpts holds parameters for creating a GitHubStatus reporter.
type GitHubStatusOpts struct {
	Token string
	Owner string
	Repo  string
	// For testing: inject a mock service instead of the real GitHub API.
	Statuses repoStatuses
}

// NewGitHubStatus creates a GitHubStatus reporter. db is used to resolve
// sourcestamp ids to revisions.
func NewGitHubStatus(db *gorm.DB, opts GitHubStatusOpts) (*GitHubStatus, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("reporters: github: owner and repo are required")
	}
	if opts.Statuses == nil && opts.Token == "" {
		return nil, fmt.Errorf("reporters: github: token is required")
	}
	statuses := opts.Statuses
	if statuses == nil {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		client := github.NewClient(oauth2.NewClient(context.Background(), ts))
		statuses = client.Repositories
	}
	return &GitHubStatus{db: db, statuses: statuses, owner: opts.Owner, repo: opts.Repo}, nil
}

// BuildsetComplete pushes one status per sourcestamp that carries a
// revision. Stamps without a revision (a bare branch head) are skipped.
func (g *GitHubStatus) BuildsetComplete(ctx context.Context, m *buildsets.BuildSetModel) error {
	if len(m.SourceStamps) == 0 {
		return nil
	}

	var stamps []models.SourceStamp
	if err := g.db.Where("id IN ?", m.SourceStamps).Find(&stamps).Error; err != nil {
		return fmt.Errorf("reporters: github: load sourcestamps: %w", err)
	}

	state := stateFor(m.Results)
	desc := summary(m)
	for _, stamp := range stamps {
		if stamp.Revision == "" {
			continue
		}
		status := &github.RepoStatus{
			State:       github.Ptr(state),
			Description: github.Ptr(desc),
			Context:     github.Ptr(statusContext),
		}
		if _, _, err := g.statuses.CreateStatus(ctx, g.owner, g.repo, stamp.Revision, status); err != nil {
			return fmt.Errorf("reporters: github: status for %s: %w", stamp.Revision, err)
		}
	}
	return nil
}

// stateFor maps a results code to a GitHub commit status state.
func stateFor(results int) string {
	switch results {
	case ResultSuccess, ResultWarnings, ResultSkipped:
		return "success"
	case ResultFailure:
		return "failure"
	default:
		return "error"
	}
}
