package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable/internal/dto"
)

const generateInput = `{
	"schoolId": "school-1",
	"termId": "term-1",
	"subjects": [
		{"subjectId": "math", "annualHours": 120, "credits": 70},
		{"subjectId": "bio", "annualHours": 30, "credits": 10}
	],
	"assignments": [
		{"teacherId": "T1", "subjectId": "math", "classId": "10A"},
		{"teacherId": "T2", "subjectId": "bio", "classId": "10A"}
	]
}`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateJSON(t *testing.T) {
	out, err := execute(t, generateInput, "generate")
	require.NoError(t, err)

	var run dto.TimetableRunResponse
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	require.Len(t, run.Schedules, 1)
	assert.Equal(t, "10A", run.Schedules[0].ClassID)
	assert.Equal(t, 10, run.Summary.ScheduledPeriods)
	assert.True(t, run.Diagnostics.Empty())
}

func TestGenerateCSVToFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "request.json")
	output := filepath.Join(dir, "10A.csv")
	require.NoError(t, os.WriteFile(input, []byte(generateInput), 0o600))

	_, err := execute(t, "", "generate", "--input", input, "--output", output, "--format", "csv")
	require.NoError(t, err)

	body, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	assert.Equal(t, "Time,MONDAY,TUESDAY,WEDNESDAY,THURSDAY,FRIDAY", lines[0])
	assert.Contains(t, string(body), "math (T1)")
}

func TestGenerateRejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, generateInput, "generate", "--format", "xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx")
}

func TestGenerateRequiresClassForMultiClassExport(t *testing.T) {
	input := strings.Replace(generateInput, `"classId": "10A"}
	]`, `"classId": "10B"}
	]`, 1)

	_, err := execute(t, input, "generate", "--format", "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--class")

	out, err := execute(t, input, "generate", "--format", "pdf", "--class", "10B")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "%PDF"))
}

func TestGenerateStrictFailsOnShortfall(t *testing.T) {
	input := `{
		"schoolId": "school-1",
		"termId": "term-1",
		"subjects": [{"subjectId": "math", "annualHours": 120, "credits": 70}],
		"classes": [{"classId": "10A", "days": [{"weekday": 1, "start": "09:00", "end": "10:20", "morningBreak": {"start": "09:40", "end": "10:00"}}]}],
		"assignments": [{"teacherId": "T1", "subjectId": "math", "classId": "10A"}]
	}`

	_, err := execute(t, input, "generate", "--strict")
	assert.ErrorIs(t, err, errIncomplete)
}

func TestGenerateMalformedInput(t *testing.T) {
	_, err := execute(t, `{"schoolId":`, "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode input")
}

func TestClassify(t *testing.T) {
	out, err := execute(t, `{"subjects":[{"subjectId":"art","annualHours":20,"credits":5}]}`, "classify")
	require.NoError(t, err)

	var resp dto.ClassifySubjectsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Subjects, 1)
	assert.Equal(t, 2, resp.Subjects[0].WeeklyPeriods)
}

func TestDefaultConfigSixDays(t *testing.T) {
	out, err := execute(t, "", "default-config", "--school-days", "6")
	require.NoError(t, err)
	assert.Contains(t, out, `"6"`)
	assert.Contains(t, out, `"09:00"`)
}
