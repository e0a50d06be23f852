package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// leadFields are the tracing fields printed first, in this order, and
// highlighted so a session can be followed through interleaved output.
var leadFields = []string{"session_id", "task_id", "platform", "candidate_id", "error"}

var levelColors = map[logrus.Level]*color.Color{
	logrus.DebugLevel: color.New(color.FgBlue),
	logrus.InfoLevel:  color.New(color.FgGreen),
	logrus.WarnLevel:  color.New(color.FgYellow),
	logrus.ErrorLevel: color.New(color.FgRed),
	logrus.FatalLevel: color.New(color.FgRed, color.Bold),
	logrus.PanicLevel: color.New(color.FgRed, color.Bold),
}

// ColoredJSONFormatter renders log entries as a colored key=value line for
// development runs. Production runs use the plain logrus JSON formatter.
type ColoredJSONFormatter struct {
	// TimestampFormat overrides the RFC3339 default
	TimestampFormat string
	// DisableColors emits plain text for non-terminal output
	DisableColors bool
}

func NewColoredJSONFormatter() *ColoredJSONFormatter {
	return &ColoredJSONFormatter{
		TimestampFormat: time.RFC3339,
	}
}

func (f *ColoredJSONFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	b.WriteString(f.paint(color.New(color.FgYellow), entry.Time.Format(f.timestampFormat())))
	b.WriteByte(' ')

	levelColor, ok := levelColors[entry.Level]
	if !ok {
		levelColor = color.New(color.FgWhite)
	}
	b.WriteString(f.paint(levelColor, fmt.Sprintf("%-7s", strings.ToUpper(entry.Level.String()))))
	b.WriteByte(' ')

	b.WriteString(f.paint(levelColor, entry.Message))
	b.WriteByte(' ')

	valueColor := color.New(color.FgWhite)
	for _, key := range sortedKeys(entry.Data) {
		fieldColor := color.New(color.FgCyan)
		if fieldRank(key) < len(leadFields) {
			fieldColor = color.New(color.FgGreen)
		}
		b.WriteString(f.paint(fieldColor, key+"="))
		b.WriteString(f.paint(valueColor, renderValue(entry.Data[key])))
		b.WriteByte(' ')
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *ColoredJSONFormatter) timestampFormat() string {
	if f.TimestampFormat == "" {
		return time.RFC3339
	}
	return f.TimestampFormat
}

func (f *ColoredJSONFormatter) paint(c *color.Color, s string) string {
	if f.DisableColors {
		return s
	}
	return c.Sprint(s)
}

func renderValue(v interface{}) string {
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case error:
		return fmt.Sprintf("%q", v.Error())
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

// sortedKeys orders the lead fields first, everything else alphabetically.
func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := fieldRank(keys[i]), fieldRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func fieldRank(key string) int {
	for i, field := range leadFields {
		if field == key {
			return i
		}
	}
	return len(leadFields)
}
