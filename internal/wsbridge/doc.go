// Package wsbridge implements the livesync Bridge over a websocket.
//
// Frames are JSON objects {event, ref, payload}. Inbound frames whose
// event is "reply" resolve a pending PushWait by ref; every other frame
// is handed to the dispatch function (normally Session.Dispatch). The
// bridge sends heartbeat frames on an interval and reconnects with
// exponential backoff when the connection drops.
//
// This package is internal to livesync and not part of the public API.
package wsbridge
