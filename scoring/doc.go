// Package scoring provides the validator performance scoring engine.
//
// # Reading Guide
//
// Start with these files to understand the scoring kernel:
//   - chain.go: chain-state types (vote accounts, delegations) and the collaborator interfaces
//   - latency.go: the streaming, windowed confirmation-latency tracker
//   - availability.go: vote-credit efficiency with missed-leader-slot penalties
//   - rewards.go: stake rewards plus commission per validator
//   - bucket.go: baseline-relative and percentile bucketing shared by the scorers
//
// # Architecture
//
// The scoring package consumes chain state through small interfaces (Bank, LeaderSchedule,
// BlockChain) and never performs I/O itself. Implementations live elsewhere:
//   - scoring/ledger/: JSON-lines replay fixtures and the ordered checkpoint replay driver
//   - scoring/leader/: LRU-cached leader schedule lookups
//   - scoring/stake/: stake warmup/cooldown prediction and the activation waiter
//   - scoring/trace/: decision trace recording
//
// Checkpoints must be applied to a LatencyTracker in strict ledger order by a single writer.
package scoring
