package zlog

import (
	"sync"
	"time"
)

// Record is one log entry. It is immutable once enqueued; the facade
// populates every field (stamping Timestamp and Sequence) before it ever
// becomes visible to the queue or a sink.
type Record struct {
	Level        Level
	Message      string
	FilePath     string
	FunctionName string
	LineNumber   int
	Timestamp    time.Time
	ThreadID     string
	Sequence     uint64
}

// recordPool reduces allocation on the submission hot path. Records are
// returned to the pool once the worker has dispatched them to every
// enabled sink.
var recordPool = sync.Pool{
	New: func() any { return new(Record) },
}

func getRecord() *Record {
	return recordPool.Get().(*Record)
}

func putRecord(r *Record) {
	*r = Record{}
	recordPool.Put(r)
}
