// Package model defines the core data structures used throughout docharvest.
//
// This package contains the following main types:
//   - Link: A candidate document link discovered on a seed page
//   - Record: A ledger entry describing one acquired document
//   - Outcome: What happened to a candidate link during a crawl run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, ledger, harvest and report packages all need these
// types, so centralizing them prevents import cycles.
//
// Record is the boundary contract with the downstream generation stage, so its
// JSON form is kept stable and human-reviewable.
package model
