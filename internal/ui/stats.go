package ui

import "sync/atomic"

type Stats struct {
	Scraped atomic.Int64
	Failed  atomic.Int64
}
