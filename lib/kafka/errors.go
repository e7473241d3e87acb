// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kafka

import (
	"errors"

	"github.com/twmb/franz-go/pkg/kerr"

	"github.com/bureau-foundation/brokerview/lib/engine"
)

// permanentCodes are broker errors that will fail the same way on
// every retry.
var permanentCodes = []*kerr.Error{
	kerr.MessageTooLarge,
	kerr.RecordListTooLarge,
	kerr.InvalidRecord,
	kerr.CorruptMessage,
	kerr.InvalidTopicException,
	kerr.TopicAuthorizationFailed,
	kerr.ClusterAuthorizationFailed,
	kerr.GroupAuthorizationFailed,
	kerr.SaslAuthenticationFailed,
	kerr.UnsupportedSaslMechanism,
	kerr.IllegalSaslState,
	kerr.UnsupportedVersion,
}

// classify wraps non-retryable broker errors with engine.Permanent.
// Everything else, including network errors, is left transient.
func classify(err error) error {
	if err == nil || engine.IsPermanent(err) {
		return err
	}
	if kerr.IsRetriable(err) {
		return err
	}
	for _, code := range permanentCodes {
		if errors.Is(err, code) {
			return engine.Permanent(err)
		}
	}
	return err
}
