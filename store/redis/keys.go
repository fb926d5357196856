package redis

// Redis key naming conventions. All keys are prefixed with "async:" to
// avoid collisions with other applications sharing the instance.

const keyPrefix = "async:"

// ── Queue keys ──

// queueKey returns the List key for a queue's runnable jobs: async:queue:{name}
func queueKey(name string) string { return keyPrefix + "queue:" + name }

// delayedKey returns the Sorted Set key for a queue's delayed jobs,
// scored by their run-at time: async:delayed:{name}
func delayedKey(name string) string { return keyPrefix + "delayed:" + name }

// ── Batch keys ──

// batchKey returns the Hash key for a batch entity: async:batch:{id}
func batchKey(id string) string { return keyPrefix + "batch:" + id }

// ── Lock keys ──

// lockKey returns the String key for an execution-guard lock. The guard
// namespaces its own keys, so this only adds the application prefix.
func lockKey(name string) string { return keyPrefix + "lock:" + name }

// ── Failed-job keys ──

// failedKey returns the Hash key for a failed entry: async:failed:{id}
func failedKey(id string) string { return keyPrefix + "failed:" + id }

// failedIDsKey is the Set tracking all failed entry IDs for enumeration.
const failedIDsKey = keyPrefix + "failed_ids"
