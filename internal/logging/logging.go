package logging

import (
	"path/filepath"
	"time"
)

// LogFilePath names the session log file inside dir. The name carries
// the session start time so a restart never clobbers the previous log.
func LogFilePath(dir, name string, sessionStart time.Time) string {
	return filepath.Join(dir, name+"."+sessionStart.Format("20060102_150405")+".log")
}
