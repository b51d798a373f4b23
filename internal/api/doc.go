// Package api implements the HTTP handlers for the reviewdeck service:
// signup and token issuance, user administration, the category/genre/title
// catalog, and the nested review/comment resources. Handlers translate
// storage sentinel errors into API status codes and enforce the
// author/moderator/admin policy.
package api
