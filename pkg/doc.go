// Package pkg provides the core libraries for Drawbridge diagram syncing.
//
// # Overview
//
// Drawbridge keeps draw.io diagrams and their Confluence pages in step.
// The pkg directory is organized into a handful of focused areas:
//
//  1. [diagram] - Container decoding and hyperlink extraction
//  2. [export] - Image rendering strategies (desktop app, reuse, cache, sketch)
//  3. [confluence] - REST client for pages and attachments
//  4. [publish] - Body merging, the publish coordinator and checkout
//  5. [state] - Sync records (file or MongoDB backed)
//  6. [config], [cache], [errors], [httputil], [buildinfo] - Support
//
// # Architecture
//
// The typical flow of a publish:
//
//	.drawio container
//	         ↓ diagram: decode pages, extract links
//	         ↓ export: render an image (best available strategy)
//	         ↓ confluence: upload source + image attachments
//	         ↓ publish: merge the generated block into the page body
//	         ↓ state: record what was synced
//
// Each area depends only on the ones below it; the CLI in internal/cli
// wires them together.
package pkg
