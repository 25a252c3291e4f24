package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsrelay/internal/models"
)

func TestApplyLevel(t *testing.T) {
	logger := logrus.New()

	require.NoError(t, ApplyLevel(logger, "warn", false))
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	require.NoError(t, ApplyLevel(logger, "error", true))
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	require.NoError(t, ApplyLevel(logger, "", false))
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	assert.Error(t, ApplyLevel(logger, "loud", false))
}

func TestNew_StdoutOnly(t *testing.T) {
	logger, closer, err := New(models.LoggingConfig{Level: "debug"}, false)
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	assert.NotEmpty(t, logger.Hooks[logrus.InfoLevel], "privacy hook expected")
}

func TestNew_VerboseSkipsMasking(t *testing.T) {
	logger, closer, err := New(models.LoggingConfig{Level: "info"}, true)
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.Empty(t, logger.Hooks[logrus.InfoLevel])
}

func TestDailyFile_WritesAndSwitchesDay(t *testing.T) {
	dir := t.TempDir()
	file, err := NewDailyFile(models.LoggingConfig{Dir: dir, MaxSizeMB: 1, MaxAgeDays: 7})
	require.NoError(t, err)
	defer file.Close()

	day1 := time.Date(2024, 3, 1, 23, 59, 0, 0, time.Local)
	file.now = func() time.Time { return day1 }
	_, err = file.Write([]byte("first\n"))
	require.NoError(t, err)

	day2 := day1.Add(2 * time.Minute)
	file.now = func() time.Time { return day2 }
	_, err = file.Write([]byte("second\n"))
	require.NoError(t, err)

	data, err := ReadDay(dir, day1)
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(data))

	data, err = ReadDay(dir, day2)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))
}

func TestDailyFile_PrunesOldDays(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "app-2024-01-01.log")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))
	unrelated := filepath.Join(dir, "other.log")
	require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o600))

	file, err := NewDailyFile(models.LoggingConfig{Dir: dir, MaxSizeMB: 1, MaxAgeDays: 7})
	require.NoError(t, err)
	defer file.Close()
	file.now = func() time.Time { return time.Date(2024, 2, 1, 10, 0, 0, 0, time.Local) }

	_, err = file.Write([]byte("today\n"))
	require.NoError(t, err)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, unrelated)
	assert.FileExists(t, filepath.Join(dir, "app-2024-02-01.log"))
}

func TestReadDay_Missing(t *testing.T) {
	_, err := ReadDay(t.TempDir(), time.Now())
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "app-2024-12-31.log", FileName(time.Date(2024, 12, 31, 8, 0, 0, 0, time.UTC)))
}
