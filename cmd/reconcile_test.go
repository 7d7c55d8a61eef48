package cmd

import (
	"bytes"
	"strings"
	"testing"

	"sniffstore/core/reconcile"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfirm(t *testing.T) {
	cases := map[string]bool{
		"yes\n":   true,
		"  yes  ": true,
		"y\n":     false,
		"no\n":    false,
		"":        false,
	}
	for input, want := range cases {
		var out bytes.Buffer
		assert.Equal(t, want, confirm(strings.NewReader(input), &out), "input %q", input)
		assert.Contains(t, out.String(), "yes")
	}
}

func TestPrintAuditReport(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	plan := &reconcile.Plan{Summary: reconcile.Summary{TotalItems: 9, MissingLedger: 7}}
	for _, key := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		plan.Actions = append(plan.Actions, reconcile.Action{Type: reconcile.ActionRecord, Key: key})
	}

	printAuditReport(zap.New(core), plan)

	assert.Equal(t, 1, logs.FilterMessage("Audit report").Len())
	assert.Equal(t, maxSampleActions, logs.FilterMessage("Planned action").Len())
	rest := logs.FilterMessage("Additional actions not shown").All()
	if assert.Len(t, rest, 1) {
		assert.Equal(t, int64(2), rest[0].ContextMap()["count"])
	}
}
