// Package pkg provides the core libraries for Moxie, a Maven-compatible
// dependency resolver and artifact cache.
//
// # Overview
//
// Moxie reads a project descriptor, walks the transitive dependency graph
// of every classpath scope, mediates version conflicts nearest-first and
// downloads the selected artifacts into a verified local cache. The pkg
// directory is organized into four areas:
//
//  1. Model: [maven] coordinates, scopes, versions and repository metadata;
//     [pom] project models with inheritance and property substitution
//  2. Storage: [artifacts] the layered artifact cache with side-data and
//     memoized solutions; [cache] key/value stores for negative lookups
//  3. Transport: [repository] the verifying repository client; [httputil]
//     retrying, proxy-aware HTTP transport; [server] the cache as a repository
//  4. Resolution: [solver] scope solving, trees, classpaths and snapshot
//     purging; [config] descriptors, settings and the per-invocation
//     [config.ResolverContext]
//
// # Architecture
//
// The typical data flow through Moxie:
//
//	moxie.toml + settings.toml
//	         ↓
//	    [config] package (descriptor → project POM, ResolverContext)
//	         ↓
//	    [solver] package (walk, mediate, fetch)
//	         ↓
//	    [repository] package (metadata, checksums, breakers)
//	         ↓
//	    [artifacts] package (cache layout, side-data, solutions)
//
// # Quick Start
//
// Solve the compile scope of the project in the working directory:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/moxie/pkg/config"
//	    "github.com/matzehuels/moxie/pkg/maven"
//	)
//
//	rc, _ := config.NewResolverContext(ctx, config.ContextOptions{
//	    DescriptorPath: config.DescriptorFile,
//	})
//	defer rc.Close()
//
//	s, _ := rc.ProjectSolver(ctx)
//	deps, _ := s.Solve(ctx, maven.Compile)
//	paths, _ := s.Classpath(ctx, maven.Compile)
//
// # Errors and Hooks
//
// Every package reports failures as [errors.Error] values carrying a code
// such as ARTIFACT_NOT_FOUND or UNRESOLVED_DEPENDENCY. Solver, cache and
// HTTP events are published through [observability] hooks.
package pkg
