// Package proteus provides a hierarchy-aware runtime type conversion engine
// for Go applications, combining a precedence-ordered converter registry,
// pluggable resolution strategies, and a type-safe conversion facade in a
// single, cohesive system.
//
// # Philosophy: One Registry, Deterministic Dispatch
//
// Proteus is built on the principle that runtime conversion should be
// deterministic, explicit, and ultra-performant. Given a value of an unknown
// runtime type and a requested destination type, Proteus locates the single
// correct converter among potentially thousands of registered conversions,
// honoring a documented precedence order at every step.
//
// # Architecture Overview
//
// Proteus consists of five integrated subsystems:
//  1. **Converter Registry**: exact-pair table plus four precedence-ordered rule buckets
//  2. **Resolution Strategies**: Exact, Fuzzy, RuleBased and BestMatch policies
//  3. **Conversion Facade**: nil handling, assignability fast path, typed failures
//  4. **Declarative Registrars**: builtin conversions, enum codecs, table files
//  5. **Comprehensive Audit System**: registration and failure logging with SQLite backend
//
// # Quick Start
//
// Build a registry once at startup, then convert from anywhere:
//
//	reg := proteus.NewRegistry()
//	proteus.RegisterDefaults(reg)
//
//	conv := proteus.New(reg)
//	n, err := proteus.To[int](conv, "42") // n == 42
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Resolution Precedence
//
// The default BestMatch strategy resolves in three steps, returning the first
// hit: exact (src, dst) registration, then rule-based matching in the order
// fixed-source/assignable-destination, fixed-source/any-destination,
// assignable-source/fixed-destination, any-source/fixed-destination, then a
// fuzzy walk over the source type's declared ancestors. Exact registrations
// are authoritative and cheapest; fuzzy matching is the most permissive and
// is tried last so it can never mask a more precise registration.
//
// # Concurrency Model
//
// A Registry is populated during single-threaded startup and is then safe for
// unbounded concurrent lookups. No lookup blocks, performs I/O, or suspends;
// conversions are synchronous and CPU-bound.
//
// # Error Handling
//
// All failures carry structured error codes (PROTEUS_NIL_SOURCE,
// PROTEUS_NO_CONVERTER, PROTEUS_CONVERSION_FAILED) with source and
// destination type context, enabling programmatic error handling:
//
//	if _, err := conv.Convert("abc", reflect.TypeFor[int]()); err != nil {
//		// inspect the coded error, fall back, or abort
//	}
//
// The defaulted entry point never fails:
//
//	port := proteus.ToOrDefault(conv, os.Getenv("PORT"), 8080)
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package proteus
