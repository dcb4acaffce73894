// Package services talks to the text-transformation backend over plain HTTP.
//
// [APIService] covers the request/response endpoints: login, health and arbitrary
// authorized GETs. The streaming endpoints live in the stream package.
//
// # Authentication
//
// Login posts credentials and returns the issued token; persisting it is the caller's
// job. Ordinary calls made through [NewAuthorizedClient] carry the token as a Bearer
// header via [oauth2.Transport], reading it from any [oauth2.TokenSource] (the
// credential store implements one).
//
// # Error Handling
//
// Non-2xx responses become [*APIError], which unwraps to [shared.ErrAPIRequest] and
// carries the server message from any of the backend's error shapes ([ErrorMessage]).
// Transport failures are wrapped with "request failed".
package services
