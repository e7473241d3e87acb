// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/brokerview/lib/backoff"
	"github.com/bureau-foundation/brokerview/lib/clock"
	"github.com/bureau-foundation/brokerview/lib/livestate"
)

// Session manages the broker connection and the metadata refresh
// cycle. The connection record, topic catalog, broker list, group list
// and open topic detail in the store are written only by the Session.
type Session struct {
	dialer Dialer
	store  *livestate.Store
	clock  clock.Clock
	logger *slog.Logger
	config Config

	mu      sync.Mutex
	cluster Cluster
	cancel  context.CancelFunc
	done    chan struct{}

	// refresh nudges the cycle to refresh before the interval ends.
	refresh chan struct{}
}

// NewSession returns an idle session. Call [Session.Start] to begin
// connecting.
func NewSession(dialer Dialer, store *livestate.Store, clk clock.Clock, logger *slog.Logger, config Config) *Session {
	return &Session{
		dialer:  dialer,
		store:   store,
		clock:   clk,
		logger:  logger,
		config:  config.withDefaults(),
		refresh: make(chan struct{}, 1),
	}
}

// Start stops any running cycle and starts a new one against
// endpoints. The cycle connects (retrying with backoff), then refreshes
// metadata every RefreshInterval until Stop.
func (session *Session) Start(endpoints []string, group string) {
	session.Stop()

	// Record the target before returning so a command queued right
	// behind this one already sees the endpoints.
	session.store.Apply(func(state *livestate.State) bool {
		return state.SetTarget(endpoints, group)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	session.mu.Lock()
	session.cancel = cancel
	session.done = done
	session.mu.Unlock()

	go func() {
		defer close(done)
		session.run(ctx, endpoints, group)
	}()
}

// Stop cancels the cycle, waits for it to exit, releases the cluster
// handle and marks the connection Disconnected.
func (session *Session) Stop() {
	session.mu.Lock()
	cancel, done := session.cancel, session.done
	session.cancel, session.done = nil, nil
	session.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	session.installCluster(nil)
	session.store.Apply(func(state *livestate.State) bool {
		return state.Transition(livestate.Disconnected)
	})
}

// RequestRefresh asks the running cycle to refresh now. It never
// blocks; requests arriving while one is already pending coalesce.
func (session *Session) RequestRefresh() {
	select {
	case session.refresh <- struct{}{}:
	default:
	}
}

// Connect tries endpoints in order, each bounded by CallTimeout, and
// installs the first cluster that answers. When none does it returns a
// *[ConnectionError] carrying every endpoint's failure and leaves the
// connection Failing.
func (session *Session) Connect(ctx context.Context, endpoints []string, group string) error {
	session.store.Apply(func(state *livestate.State) bool {
		changed := state.SetTarget(endpoints, group)
		return state.Transition(livestate.Connecting) || changed
	})

	var failures []EndpointError
	for _, endpoint := range endpoints {
		callCtx, cancel := context.WithTimeout(ctx, session.config.CallTimeout)
		cluster, err := session.dialer.DialCluster(callCtx, endpoint)
		cancel()
		if err == nil {
			session.installCluster(cluster)
			session.store.Apply(func(state *livestate.State) bool {
				changed := state.Transition(livestate.Connected)
				changed = state.SetActiveEndpoint(endpoint) || changed
				changed = state.SetConnectionError("") || changed
				return state.SetConsecutiveFailures(0) || changed
			})
			session.logger.Info("connected to cluster", "endpoint", endpoint, "group", group)
			return nil
		}
		session.logger.Debug("endpoint unreachable", "endpoint", endpoint, "error", err)
		failures = append(failures, EndpointError{Endpoint: endpoint, Err: err})
		if ctx.Err() != nil {
			break
		}
	}

	connectErr := &ConnectionError{Endpoints: failures}
	session.store.Apply(func(state *livestate.State) bool {
		changed := state.Transition(livestate.Failing)
		return state.SetConnectionError(connectErr.Error()) || changed
	})
	return connectErr
}

// RefreshMetadata lists topics, brokers and consumer groups and
// describes the open topic, then installs the results in one store
// update. Topic and broker failures fail the refresh with a
// *[MetadataError]; group and detail failures are logged and the
// previous values kept.
func (session *Session) RefreshMetadata(ctx context.Context) error {
	cluster := session.currentCluster()
	if cluster == nil {
		return &MetadataError{Op: "list topics", Err: ErrNotConnected}
	}

	topics, err := callWithTimeout(ctx, session.config.CallTimeout, cluster.ListTopics)
	if err != nil {
		return &MetadataError{Op: "list topics", Err: err}
	}
	brokers, err := callWithTimeout(ctx, session.config.CallTimeout, cluster.ListBrokers)
	if err != nil {
		return &MetadataError{Op: "list brokers", Err: err}
	}
	groups, groupErr := callWithTimeout(ctx, session.config.CallTimeout, cluster.ListGroups)
	if groupErr != nil {
		session.logger.Warn("listing consumer groups failed", "error", groupErr)
	}

	var openTopic string
	session.store.Read(func(state *livestate.State) { openTopic = state.OpenTopic() })
	var detail livestate.TopicDetail
	var detailErr error
	if openTopic != "" {
		detail, detailErr = callWithTimeout(ctx, session.config.CallTimeout, func(ctx context.Context) (livestate.TopicDetail, error) {
			return cluster.DescribeTopic(ctx, openTopic)
		})
		if detailErr != nil {
			session.logger.Warn("describing open topic failed", "topic", openTopic, "error", detailErr)
		} else {
			detail.FetchedAt = session.clock.Now()
		}
	}

	refreshedAt := session.clock.Now()
	session.store.Apply(func(state *livestate.State) bool {
		changed := state.ReplaceTopics(topics, refreshedAt)
		changed = state.ReplaceBrokers(brokers) || changed
		if groupErr == nil {
			changed = state.ReplaceGroups(groups) || changed
		}
		if openTopic != "" && detailErr == nil {
			changed = state.SetTopicDetail(detail) || changed
		}
		return state.SetConsecutiveFailures(0) || changed
	})
	session.logger.Debug("metadata refreshed", "topics", len(topics), "brokers", len(brokers))
	return nil
}

func (session *Session) run(ctx context.Context, endpoints []string, group string) {
	reconnect := backoff.New(session.config.Backoff)
	for {
		err := session.Connect(ctx, endpoints, group)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			var connectErr *ConnectionError
			if errors.As(err, &connectErr) && connectErr.Permanent() {
				session.logger.Error("connect failed permanently, waiting for a new connect request", "error", err)
				return
			}
			delay := reconnect.Next()
			session.logger.Warn("connect failed", "error", err, "attempt", reconnect.Attempts(), "backoff", delay)
			if clock.Sleep(ctx, session.clock, delay) != nil {
				return
			}
			continue
		}
		reconnect.Reset()

		err = session.refreshLoop(ctx)
		if ctx.Err() != nil {
			return
		}
		session.installCluster(nil)
		delay := reconnect.Next()
		session.logger.Warn("metadata refresh failing, reconnecting", "error", err, "backoff", delay)
		if clock.Sleep(ctx, session.clock, delay) != nil {
			return
		}
	}
}

// refreshLoop refreshes immediately, then every RefreshInterval.
// Failures below the threshold are retried on the backoff schedule
// without surfacing an error. Returns once the threshold is reached
// (with the connection marked Failing) or ctx is done.
func (session *Session) refreshLoop(ctx context.Context) error {
	retry := backoff.New(session.config.Backoff)
	failures := 0
	for {
		err := session.RefreshMetadata(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := session.config.RefreshInterval
		if err != nil {
			failures++
			if failures >= session.config.MetadataFailureThreshold {
				session.store.Apply(func(state *livestate.State) bool {
					changed := state.SetConsecutiveFailures(failures)
					changed = state.Transition(livestate.Failing) || changed
					return state.SetConnectionError(err.Error()) || changed
				})
				return err
			}
			session.store.Apply(func(state *livestate.State) bool {
				return state.SetConsecutiveFailures(failures)
			})
			wait = retry.Next()
			session.logger.Debug("metadata refresh failed, retrying", "error", err, "failures", failures, "backoff", wait)
		} else {
			failures = 0
			retry.Reset()
		}

		timer := session.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		case <-session.refresh:
			timer.Stop()
		}
	}
}

func (session *Session) currentCluster() Cluster {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.cluster
}

// installCluster replaces the cluster handle, closing the old one.
func (session *Session) installCluster(cluster Cluster) {
	session.mu.Lock()
	previous := session.cluster
	session.cluster = cluster
	session.mu.Unlock()
	if previous != nil {
		previous.Close()
	}
}

func callWithTimeout[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return call(callCtx)
}
