/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
Package announce tells the rest of the host that the time was changed.
Depending on the implementation it could be anything:
* nothing at all
* a log line
* a systemd journal entry
Implementations can additionally wake every sleeper waiting on an absolute time.
*/
package announce

import (
	"fmt"

	"github.com/facebook/bntp/clock"
)

// Notifier is the operator notification channel
type Notifier interface {
	// WakeWaiters wakes processes sleeping until some wall clock time
	WakeWaiters() error
	// Send delivers a message to the operator
	Send(msg string) error
}

// Supported notifiers
const (
	KindNone    = "none"
	KindLog     = "log"
	KindJournal = "journal"
)

// New returns the notifier of the given kind
func New(kind string, wake bool) (Notifier, error) {
	switch kind {
	case KindNone:
		return &Noop{}, nil
	case KindLog:
		return &Log{Wake: wake}, nil
	case KindJournal:
		return &Journal{Wake: wake}, nil
	}
	return nil, fmt.Errorf("unknown notifier %q", kind)
}

// waker is shared by notifiers able to wake sleepers
type waker bool

func (w waker) wake() error {
	if !w {
		return nil
	}
	return clock.WakeWaiters()
}
