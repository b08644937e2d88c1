// Package planner decides, per file and stage, whether cached work can be
// reused. It reads the ledger and the cache directories and never mutates
// either; the workflow package acts on its decisions.
package planner
