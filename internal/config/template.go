// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

const configTemplate = `# ID of group to monitor, if all members you monitor are in a single
# group (this may save you a few API requests each time). Leave as 0 if
# you want to monitor multiple groups.
#
# Group IDs:
# - SNH48: 10;
# - BEJ48: 11;
# - GNZ48: 12;
# - SHY48: 13;
# - CKG48: 14.
group_id: 0

# Names of members to monitor and download.
#
# Example:
# names:
# - 莫寒
# - 张语格
names:

# Default time span (inclusive), in days, to check for VODs.
#
# By default, the last day to check is today, and the default time span
# is 1 day (inclusive), which means only VODs from today are checked.
# The date range can be customized on the command line via --from, --to,
# and --span.
span: 1

# Destination directory for downloaded VODs. Tilde expansion is allowed.
# The default is the current working directory.
#
# Example:
# directory: ~/Downloads
directory:

# File naming pattern. The following replacement strings are available:
# - %(date)s: date in the form YYYY-MM-DD, e.g. 2018-02-11;
# - %(date_c)s: compact date in the form YYYYMMDD, e.g. 20180211;
# - %(datetime)s: starting datetime in the form YYYY-MM-DD HH.MM.SS;
# - %(datetime_c)s: compact starting datetime in the form YYYYMMDDHHMMSS;
# - %(id)s: server-assigned alphanumeric VOD ID;
# - %(name)s: member name, e.g. 莫寒;
# - %(type)s: type of the VOD, either 直播 or 电台;
# - %(title)s: title of the VOD;
# - %(ext)s: extension of the file (without leading dot), e.g. mp4;
# - %%: a literal percent sign should be escaped like this.
#
# Filename conflicts are handled automatically by appending numbers.
naming:

# Whether to put VODs in named subdirectories. If turned on, each member
# gets her own subdirectory where all her VODs go. Default is off.
#named_subdirs: off

# How to treat characters beyond the Basic Multilingual Plane in
# filenames (necessary only for legacy filesystems like FAT32).
# One of: keep (default), strip, replace, question_mark, or a single
# replacement character.
#convert_non_bmp_chars: keep

# Editor to use when a text editor is needed (e.g. in perf mode). Either
# a command name or an absolute path. The editor must be blocking.
# Options can be specified in editor_opts, a sequence.
#editor:
#editor_opts:

# Whether to allow daily update checks for KVM48. Default is on.
#update_checks: on

# Perf mode specific settings (--mode perf). Each entry overrides the
# corresponding global setting.
perf:
  #group_id:
  #span:
  #directory:
  #named_subdirs:

  # Whether to show instructions in the perf mode review draft.
  #instructions: on
`

// DefaultPath returns the default config file location inside dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, "config.yml")
}

// DumpTemplate writes the config template to path if no non-empty file
// exists there yet. It reports whether the template was written.
func DumpTemplate(path string) (bool, error) {
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("config: cannot create %s: %w", filepath.Dir(path), err)
	}
	if err := renameio.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return false, fmt.Errorf("config: cannot write template to %s: %w", path, err)
	}
	return true, nil
}
