// Package bookkeeper reconciles the bookkeeping state of pull requests with
// their live state on GitHub.
//
// A pass waits until GitHub computed the mergeability of all open pull
// requests. Afterwards pull requests that have merge conflicts get the
// needs-rebase label and a notice comment, pull requests that became mergeable
// again have them removed.
//
// Independent of the label pass, sections of the metadata comment of a pull
// request can be updated. The metadata comment is a single issue comment per
// pull request, identified by its root marker, that consists of sections
// identified by their own marker.
//
// All decisions are computed as a list of actions first. The actions are
// then applied or, in dry-run mode, only logged.
package bookkeeper
