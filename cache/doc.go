/*
Package cache is the fingerprint-keyed JSON store for grid search results
and generated artifacts.

Each data file maps to one record under the key produced by
fingerprint.Key, so editing the file silently retires the old record.
A record may hold best ARIMA orders per series, image artifacts, CSV
artifacts, or any mix of the three.

# Usage

	store, res := cache.Open("cache/arima_cache.json", cache.WithLogger(log))
	if res.Status == cache.StatusCorrupt {
		// the store started empty; keep going
	}

	if p, res := store.GetParams(dataFile, cache.Purchase); res.OK() {
		fmt.Println(p.BestParams)
	}

	store.SaveParams(dataFile, cache.Purchase, arima.Order{P: 2, D: 1, Q: 3}, 1234.56, 6, 184)

# Failure handling

No operation panics or returns a fatal error. Every call returns a Result
whose Status says what happened: a miss, an unreadable data file, a failed
write, or a corrupt cache file that was replaced by an empty store. Writes
go through a temporary file renamed over the cache file.

A Store is safe for concurrent use within one process. Two processes
sharing a cache file may lose each other's updates.
*/
package cache
