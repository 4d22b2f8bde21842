package common

// AccessTokenHeaderName is the HTTP header used to carry the access token
// on outbound requests.
const AccessTokenHeaderName = "Authorization"

// TaskCollection is the record collection all task payloads live in. The
// remote record service scopes fetch and push calls by collection so
// several applications can share one account.
const TaskCollection = "tasks"
