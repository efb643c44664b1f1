package javatest

import (
	"bytes"
	"encoding/xml"
	"time"
)

// TestReport aggregates the outcome of a test-launcher invocation across
// one or more test classes (spec §4.5 step 6).
type TestReport struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
	Failures []Failure
}

// Failure describes one failing or erroring test case.
type Failure struct {
	ClassName string
	TestName  string
	Message   string
}

// Merge folds other into r, summing counters and appending failures. Used
// to combine one TestReport per launched class into the run's aggregate.
func (r *TestReport) Merge(other *TestReport) {
	r.Total += other.Total
	r.Passed += other.Passed
	r.Failed += other.Failed
	r.Skipped += other.Skipped
	r.Duration += other.Duration
	r.Failures = append(r.Failures, other.Failures...)
}

// looksLikeJUnitXMLResults sniffs b's prefix to decide whether it is
// JUnit/TestNG-shaped XML worth decoding, the same guard
// please's looksLikeJUnitXMLTestResults applies before attempting to parse
// a test launcher's output as XML.
func looksLikeJUnitXMLResults(b []byte) bool {
	trimmed := bytes.TrimLeft(b, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("<?xml")) ||
		bytes.HasPrefix(trimmed, []byte("<testsuite"))
}

// jUnitXMLTestSuites is the root element JUnit Platform Console and Surefire
// both emit when a run produces more than one suite; TestNG's report uses
// the same <testsuite>/<testcase> shape for an individual suite.
type jUnitXMLTestSuites struct {
	XMLName    xml.Name            `xml:"testsuites"`
	TestSuites []jUnitXMLTestSuite `xml:"testsuite"`
}

type jUnitXMLTestSuite struct {
	XMLName   xml.Name           `xml:"testsuite"`
	Name      string             `xml:"name,attr"`
	Tests     int                `xml:"tests,attr"`
	Errors    int                `xml:"errors,attr"`
	Failures  int                `xml:"failures,attr"`
	Skipped   int                `xml:"skipped,attr"`
	Time      float64            `xml:"time,attr"`
	TestCases []jUnitXMLTestCase `xml:"testcase"`
}

type jUnitXMLTestCase struct {
	Name      string           `xml:"name,attr"`
	ClassName string           `xml:"classname,attr"`
	Time      float64          `xml:"time,attr"`
	Failure   *jUnitXMLOutcome `xml:"failure"`
	Error     *jUnitXMLOutcome `xml:"error"`
	Skipped   *jUnitXMLOutcome `xml:"skipped"`
}

type jUnitXMLOutcome struct {
	Message   string `xml:"message,attr"`
	Type      string `xml:"type,attr"`
	Traceback string `xml:",chardata"`
}

// parseJUnitXMLResults decodes a JUnit-Platform-Console/Surefire/TestNG
// style XML report into a TestReport. It accepts either a <testsuites>
// wrapper or a single bare <testsuite> element, matching the variance
// please's own parser tolerates.
func parseJUnitXMLResults(data []byte) (*TestReport, error) {
	var suites []jUnitXMLTestSuite

	var wrapper jUnitXMLTestSuites
	if err := xml.Unmarshal(data, &wrapper); err == nil && len(wrapper.TestSuites) > 0 {
		suites = wrapper.TestSuites
	} else {
		var single jUnitXMLTestSuite
		if err := xml.Unmarshal(data, &single); err != nil {
			return nil, err
		}
		suites = []jUnitXMLTestSuite{single}
	}

	report := &TestReport{}
	for _, suite := range suites {
		report.Duration += time.Duration(suite.Time * float64(time.Second))
		for _, tc := range suite.TestCases {
			report.Total++
			switch {
			case tc.Failure != nil:
				report.Failed++
				report.Failures = append(report.Failures, Failure{ClassName: tc.ClassName, TestName: tc.Name, Message: tc.Failure.Message})
			case tc.Error != nil:
				report.Failed++
				report.Failures = append(report.Failures, Failure{ClassName: tc.ClassName, TestName: tc.Name, Message: tc.Error.Message})
			case tc.Skipped != nil:
				report.Skipped++
			default:
				report.Passed++
			}
		}
	}
	return report, nil
}
