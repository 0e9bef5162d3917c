// Package debug appends timestamped plaintext blocks to per-concern log
// files under the cache dir. Logging must never fail a hook, so every
// error here is swallowed.
package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Path returns the full path of a named log file under cacheDir/logs/.
func Path(cacheDir, logName string) string {
	return filepath.Join(cacheDir, "logs", logName)
}

// Log appends a debug entry to the specified log file in cacheDir/logs/.
func Log(cacheDir, logName, message string, data interface{}) {
	logFile := Path(cacheDir, logName)
	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)

	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	ts := time.Now().Format("2006-01-02T15:04:05.000")
	fmt.Fprintf(f, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(f, "[%s] %s\n", ts, message)

	if data != nil {
		b, err := json.MarshalIndent(data, "", "  ")
		if err == nil {
			fmt.Fprintf(f, "%s\n", b)
		}
	}
}
