package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
)

const DateLayout = "2006-01-02"

var Log = logrus.New()

func SetLogLevel(level string) {
	// We are not using logrus' trace and panic levels
	switch strings.ToLower(level) {
	case "debug":
		Log.SetLevel(log.DebugLevel)
	case "info":
		Log.SetLevel(log.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(log.WarnLevel)
	case "error":
		Log.SetLevel(log.ErrorLevel)
	case "fatal":
		Log.SetLevel(log.FatalLevel)
	default:
		log.Fatal("Bad error level string")
	}
}

// IsDate checks if a string is a well-formed calendar date (YYYY-MM-DD)
func IsDate(s string) bool {
	_, err := time.Parse(DateLayout, strings.TrimSpace(s))
	return err == nil
}

// ParseFlag accepts the usual spellings of a boolean toggle (true/false, on/off, yes/no, 1/0).
func ParseFlag(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes", "y", "enable", "enabled":
		return true, true
	case "off", "no", "n", "disable", "disabled":
		return false, true
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, false
	}
	return b, true
}

// HumanMB formats a byte count the way the settings screen shows storage usage.
func HumanMB(n int) string {
	return strconv.FormatFloat(float64(n)/(1024*1024), 'f', 2, 64) + " MB"
}
