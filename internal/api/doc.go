// Package api serves the operator HTTP API: a health probe and read and
// delete access to stored subscriptions.
package api
