package model

// Package model defines domain data structures shared across the pipeline:
// content categories, per-operation task records, status enums and the
// labelled error kinds surfaced to the console.
