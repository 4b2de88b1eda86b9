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

package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// niceness the daemon runs at with lockmemory
const lockedPriority = -10

// lockMemory keeps the daemon resident and ahead of ordinary processes
func lockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("mlockall: %w", err)
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, lockedPriority); err != nil {
		return fmt.Errorf("setpriority: %w", err)
	}
	log.Debugf("memory locked, priority %d", lockedPriority)
	return nil
}
