// Package config provides configuration structures and utilities for docharvest.
//
// A run is configured in three layers, later layers winning:
//
//  1. Built-in defaults from NewConfig
//  2. The YAML config file (see FindConfigFile), applied with Config.ApplyFile
//  3. CLI flags that the user explicitly set
//
// The config file also carries the outbound identity (user agent, headers,
// cookie) per host and the inclusion rules that decide which discovered
// document links are kept for a site.
package config
