package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"whatsrelay/internal/constants"
	"whatsrelay/internal/models"
	"whatsrelay/internal/security"
)

// DailyFile writes to app-YYYY-MM-DD.log in the log directory, switching
// files when the local date changes. Size based rotation within a day is
// handled by lumberjack.
type DailyFile struct {
	cfg models.LoggingConfig
	now func() time.Time

	mu  sync.Mutex
	day string
	out *lumberjack.Logger
}

func NewDailyFile(cfg models.LoggingConfig) (*DailyFile, error) {
	if cfg.Dir == "" {
		cfg.Dir = constants.DefaultLogDir
	}
	if err := security.ValidateFilePath(cfg.Dir); err != nil {
		return nil, fmt.Errorf("invalid log directory: %w", err)
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &DailyFile{cfg: cfg, now: time.Now}, nil
}

// FileName returns the log file name for the day of t
func FileName(t time.Time) string {
	return constants.LogFilePrefix + t.Format(constants.LogFileDateLayout) + ".log"
}

func (f *DailyFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	day := now.Format(constants.LogFileDateLayout)
	if day != f.day {
		if f.out != nil {
			_ = f.out.Close()
		}
		f.out = &lumberjack.Logger{
			Filename:   filepath.Join(f.cfg.Dir, FileName(now)),
			MaxSize:    f.cfg.MaxSizeMB,
			MaxAge:     f.cfg.MaxAgeDays,
			MaxBackups: f.cfg.MaxBackups,
			Compress:   f.cfg.Compress,
			LocalTime:  true,
		}
		f.day = day
		f.prune(now)
	}
	return f.out.Write(p)
}

func (f *DailyFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.out == nil {
		return nil
	}
	err := f.out.Close()
	f.out = nil
	f.day = ""
	return err
}

// prune removes daily files older than MaxAgeDays. lumberjack only ages out
// backups of the file it currently owns.
func (f *DailyFile) prune(now time.Time) {
	if f.cfg.MaxAgeDays <= 0 {
		return
	}
	matches, err := filepath.Glob(filepath.Join(f.cfg.Dir, constants.LogFilePrefix+"*.log*"))
	if err != nil {
		return
	}
	sort.Strings(matches)

	cutoff := now.AddDate(0, 0, -f.cfg.MaxAgeDays).Format(constants.LogFileDateLayout)
	for _, path := range matches {
		name := filepath.Base(path)
		if len(name) < len(constants.LogFilePrefix)+len(constants.LogFileDateLayout) {
			continue
		}
		day := name[len(constants.LogFilePrefix) : len(constants.LogFilePrefix)+len(constants.LogFileDateLayout)]
		if _, err := time.Parse(constants.LogFileDateLayout, day); err != nil {
			continue
		}
		if day < cutoff {
			_ = os.Remove(path)
		}
	}
}

// ReadDay returns the contents of the log file for the day of t
func ReadDay(dir string, t time.Time) ([]byte, error) {
	name := FileName(t)
	if err := security.ValidateFilePathWithBase(name, dir); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return data, nil
}
