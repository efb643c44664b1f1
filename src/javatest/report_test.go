package javatest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSuite = `<?xml version="1.0" encoding="UTF-8"?>
<testsuite name="com.example.FooTest" tests="3" failures="1" errors="0" skipped="1" time="0.042">
  <testcase name="addsUp" classname="com.example.FooTest" time="0.01"/>
  <testcase name="subtracts" classname="com.example.FooTest" time="0.02">
    <failure message="expected 2 but was 3" type="org.opentest4j.AssertionFailedError">stack trace here</failure>
  </testcase>
  <testcase name="ignoredForNow" classname="com.example.FooTest" time="0.0">
    <skipped/>
  </testcase>
</testsuite>`

const sampleSuitesWrapper = `<testsuites>
  <testsuite name="com.example.FooTest" tests="1" time="0.01">
    <testcase name="ok" classname="com.example.FooTest" time="0.01"/>
  </testsuite>
  <testsuite name="com.example.BarTest" tests="1" time="0.02">
    <testcase name="alsoOk" classname="com.example.BarTest" time="0.02"/>
  </testsuite>
</testsuites>`

func TestLooksLikeJUnitXMLResults(t *testing.T) {
	assert.True(t, looksLikeJUnitXMLResults([]byte(sampleSuite)))
	assert.True(t, looksLikeJUnitXMLResults([]byte("<testsuite/>")))
	assert.False(t, looksLikeJUnitXMLResults([]byte("not xml at all")))
}

func TestParseJUnitXMLResultsSingleSuite(t *testing.T) {
	report, err := parseJUnitXMLResults([]byte(sampleSuite))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "subtracts", report.Failures[0].TestName)
	assert.Equal(t, "expected 2 but was 3", report.Failures[0].Message)
}

func TestParseJUnitXMLResultsMultipleSuites(t *testing.T) {
	report, err := parseJUnitXMLResults([]byte(sampleSuitesWrapper))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, 0, report.Failed)
}

func TestMerge(t *testing.T) {
	a := &TestReport{Total: 2, Passed: 2}
	b := &TestReport{Total: 1, Failed: 1, Failures: []Failure{{TestName: "x"}}}
	a.Merge(b)
	assert.Equal(t, 3, a.Total)
	assert.Equal(t, 2, a.Passed)
	assert.Equal(t, 1, a.Failed)
	assert.Len(t, a.Failures, 1)
}
