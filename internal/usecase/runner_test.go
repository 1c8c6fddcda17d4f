package usecase

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/posthog-digest/internal/domain"
)

// mockNotifier stands in for the Discord notifier.
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, recipientID, message string) error {
	args := m.Called(ctx, recipientID, message)
	return args.Error(0)
}

func newTestRunner(fetcher *mockFetcher, n *mockNotifier, projects []domain.Project) *Runner {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	collector := NewCollector(fetcher, logger)
	collector.sleep = func(d time.Duration) {}
	return NewRunner(fetcher, collector, n, projects, "user-42", logger)
}

func TestRunner_Run_PartialFailureContinues(t *testing.T) {
	fetcher := new(mockFetcher)
	expectCoreMetrics(fetcher, "1")
	fetcher.On("DiscoverEvents", mock.Anything, "1").Return([]string{}, nil)
	// Project 2 fails on its very first query.
	fetcher.On("FetchActiveUsers", mock.Anything, "2", "dau", "-1d", "now").Return(0, errors.New("API error 500: boom"))

	n := new(mockNotifier)
	n.On("Send", mock.Anything, "user-42", mock.AnythingOfType("string")).Return(nil)

	projects := []domain.Project{
		{Name: "alpha", ProjectID: "1", Color: 3447003},
		{Name: "beta", ProjectID: "2", Color: 10181046},
	}
	runner := newTestRunner(fetcher, n, projects)

	err := runner.Run(context.Background())
	require.NoError(t, err)

	// The delivered digest carries both the success and the failure.
	message := n.Calls[0].Arguments.String(2)
	assert.Contains(t, message, "🔵 **alpha**")
	assert.Contains(t, message, "🔴 **beta** - ERROR")
	// Static configuration never triggers project discovery.
	fetcher.AssertNotCalled(t, "ListProjects", mock.Anything)
	fetcher.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestRunner_Run_DiscoversProjectsWhenUnconfigured(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("ListProjects", mock.Anything).Return([]domain.Project{{Name: "found", ProjectID: "9", Color: 3447003}}, nil)
	expectCoreMetrics(fetcher, "9")
	fetcher.On("DiscoverEvents", mock.Anything, "9").Return([]string{}, nil)

	n := new(mockNotifier)
	n.On("Send", mock.Anything, "user-42", mock.AnythingOfType("string")).Return(nil)

	runner := newTestRunner(fetcher, n, nil)

	require.NoError(t, runner.Run(context.Background()))
	assert.Contains(t, n.Calls[0].Arguments.String(2), "**found**")
	fetcher.AssertExpectations(t)
}

func TestRunner_Run_DiscoveryFailureIsFatal(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("ListProjects", mock.Anything).Return(nil, errors.New("API error 401: invalid key"))

	n := new(mockNotifier)
	runner := newTestRunner(fetcher, n, nil)

	err := runner.Run(context.Background())
	assert.ErrorContains(t, err, "failed to discover projects")
	n.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunner_Run_EmptyDiscoveryIsFatal(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("ListProjects", mock.Anything).Return([]domain.Project{}, nil)

	n := new(mockNotifier)
	runner := newTestRunner(fetcher, n, nil)

	err := runner.Run(context.Background())
	assert.ErrorContains(t, err, "no projects found")
	n.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunner_Run_DeliveryFailureIsFatal(t *testing.T) {
	fetcher := new(mockFetcher)
	expectCoreMetrics(fetcher, "1")
	fetcher.On("DiscoverEvents", mock.Anything, "1").Return([]string{}, nil)

	n := new(mockNotifier)
	n.On("Send", mock.Anything, "user-42", mock.AnythingOfType("string")).Return(errors.New("forbidden"))

	runner := newTestRunner(fetcher, n, []domain.Project{{Name: "alpha", ProjectID: "1"}})

	err := runner.Run(context.Background())
	assert.ErrorContains(t, err, "failed to send Discord DM")
}

func TestRunner_Deliver_NothingToSend(t *testing.T) {
	fetcher := new(mockFetcher)
	n := new(mockNotifier)
	runner := newTestRunner(fetcher, n, nil)

	// An empty result is a silent no-op, not an error and not a message.
	err := runner.deliver(context.Background(), domain.DigestResult{})
	assert.NoError(t, err)
	n.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunner_ResolveProjects_StaticSource(t *testing.T) {
	fetcher := new(mockFetcher)
	projects := []domain.Project{{Name: "alpha", ProjectID: "1"}}
	runner := newTestRunner(fetcher, new(mockNotifier), projects)

	source, err := runner.resolveProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatic, source.Kind)
	assert.Equal(t, projects, source.Projects)
	fetcher.AssertNotCalled(t, "ListProjects", mock.Anything)
}

func TestRunner_ResolveProjects_DiscoveredSource(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("ListProjects", mock.Anything).Return([]domain.Project{{Name: "found", ProjectID: "9"}}, nil)
	runner := newTestRunner(fetcher, new(mockNotifier), nil)

	source, err := runner.resolveProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SourceDiscovered, source.Kind)
	assert.Len(t, source.Projects, 1)
}
