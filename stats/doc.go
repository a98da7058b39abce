// Package stats provides the stationarity battery and autocorrelation tools
// behind the ARIMA workbench.
//
// # Stationarity Tests
//
// Three tests share the TestResult type:
//
//	adf := stats.ADF(series, 0)            // H0: unit root
//	kpss := stats.KPSS(series, "c", 0)     // H0: level stationary
//	pp := stats.PhillipsPerron(series, 0)  // H0: unit root
//
// Each test returns nil when the series has fewer than 10 observations or
// the regression is singular.
//
// # Battery
//
// Analyze runs all three and reports the share that found the series
// stationary:
//
//	report := stats.Analyze(series)
//	fmt.Printf("%s (%.0f%%), suggested d=%d\n",
//	    report.Verdict, report.StationaryRatio*100, report.SuggestedD)
//
// A ratio of at least 2/3 is stationary, at least 1/3 uncertain, anything
// lower non-stationary.
//
// # Differencing
//
// ValidateDifferencing re-runs the battery after each difference:
//
//	v := stats.ValidateDifferencing(series, 2)
//	for _, step := range v.Steps {
//	    fmt.Println(step.D, step.Report.Verdict)
//	}
//	fmt.Println("use d =", v.OptimalD)
//
// # Autocorrelation
//
// ACF and PACF return values for lags 0..maxLag. SignificantLags picks the
// lags outside ConfidenceBound(n). LjungBox checks model residuals for
// leftover autocorrelation.
package stats
