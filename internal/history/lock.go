package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	// lockStaleAfter is how old a lock file must be before it is treated as
	// abandoned by a crashed run and taken over.
	lockStaleAfter = 5 * time.Minute

	lockRetryDelay = 100 * time.Millisecond
	lockMaxRetries = 50
)

// acquireLock takes an exclusive advisory lock by creating the lock file
// with O_EXCL. The returned function releases it.
func acquireLock(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "history: create lock dir for %s", path)
	}

	for attempt := 0; attempt < lockMaxRetries; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, eris.Wrapf(err, "history: create lock %s", path)
		}

		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			zap.L().Warn("taking over stale history lock", zap.String("path", path))
			os.Remove(path)
			continue
		}
		time.Sleep(lockRetryDelay)
	}
	return nil, eris.Errorf("history: lock %s held too long", path)
}
