package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestFormatterFor(t *testing.T) {
	assert.IsType(t, &logrus.TextFormatter{}, formatterFor("text", false))
	assert.IsType(t, &logrus.JSONFormatter{}, formatterFor("json", true))
	assert.IsType(t, &logrus.TextFormatter{}, formatterFor("auto", true))
	assert.IsType(t, &logrus.JSONFormatter{}, formatterFor("auto", false))
}

func TestConfigureLevel(t *testing.T) {
	Configure("debug", "json")
	assert.Equal(t, logrus.DebugLevel, Get().GetLevel())

	Configure("nonsense", "json")
	assert.Equal(t, logrus.InfoLevel, Get().GetLevel())
}
