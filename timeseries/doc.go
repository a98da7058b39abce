// Package timeseries provides the daily Series type used across the
// workbench, together with the loader for user balance tables.
//
// # Loading Fund Flows
//
// The raw balance table holds one row per user per day. LoadBalanceTable
// groups rows by report date and sums the purchase and redeem columns:
//
//	opts := timeseries.DefaultBalanceOptions()
//	opts.Start = time.Date(2014, 3, 1, 0, 0, 0, 0, time.UTC)
//	flow, err := timeseries.LoadBalanceTable("data/user_balance_table.csv", opts)
//
//	purchase, _ := flow.Series(timeseries.PurchaseSeries)
//
// # Training Windows
//
// Window cuts an inclusive date range from a dated series:
//
//	train := purchase.Window(trainStart, trainEnd)
//
// # Basic Statistics
//
//	mean := series.Mean()
//	std := series.Std()
//	lo, hi := series.Min(), series.Max()
//
// # Transformations
//
//	diff := series.Diff()              // first difference
//	diff2 := series.DiffN(2)           // second difference
//	ma := series.MovingAverage(7)      // 7-day trailing average
//
// # Export
//
// SaveCSV writes aligned series as columns under a ds header:
//
//	err := timeseries.SaveCSV("trend.csv", purchaseMA, redeemMA)
package timeseries
