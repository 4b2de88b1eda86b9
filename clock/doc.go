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
Package clock gives race-free access to the host's live clock.

The live clock is a set of countdown registers (see package hosttime) that an
independent updater decrements at the tick rate. Nothing locks the registers:
readers take two snapshots of the fast changing fields and retry until they
agree, writers park the tick counter at a full second before touching the
other fields and store the real tick count last.

Register backends:
  - Memory, in-process atomic registers
  - Segment, a System V shared memory segment shared with the updater

A Driver plays the role of the updater for hosts without one.
System implements the same Clock interface over the kernel realtime clock.
*/
package clock
