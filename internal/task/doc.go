// Package task implements the durable background job machinery: the Job
// record, the store interface it is persisted through, and the Scheduler
// that runs a FIFO queue with a fixed worker pool, crash recovery, and
// status tracking.
package task
