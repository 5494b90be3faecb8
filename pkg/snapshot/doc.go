// Package snapshot persists the last seen metadata of each creator so the
// next run can tell whether anything changed.
//
// FileStore keeps one index.json per creator inside the generated site,
// which is the layout published sites already have. RedisStore keeps the
// same JSON in a single hash for deployments where the doc dir is
// regenerated from scratch on every run.
package snapshot
