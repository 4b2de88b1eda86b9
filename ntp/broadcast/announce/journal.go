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

package announce

import (
	"github.com/coreos/go-systemd/journal"
	log "github.com/sirupsen/logrus"
)

// Identifier tags journal entries
const Identifier = "bntp"

// Journal sends messages to the systemd journal.
// Messages are dropped when journald is not listening.
type Journal struct {
	Wake bool
}

// WakeWaiters wakes sleepers if enabled
func (j *Journal) WakeWaiters() error {
	return waker(j.Wake).wake()
}

// Send writes msg to the journal
func (j *Journal) Send(msg string) error {
	if !journal.Enabled() {
		log.Debugf("journald is not running, dropping %q", msg)
		return nil
	}
	return journal.Send(msg, journal.PriNotice, map[string]string{
		"SYSLOG_IDENTIFIER": Identifier,
	})
}
