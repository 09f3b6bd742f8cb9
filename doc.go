// Package sorcer is a service-context engine: hierarchical,
// path-addressed contexts with links, attribute marks, and lazily
// evaluated entries, plus the machinery to exert tasks on them.
//
// The context model is in package 'core'.  Exertion is in
// 'exertion', persistence in 'storage', script evaluation in
// 'interpreters', and remote transports in 'sio' (MQTT) and 'service'
// (WebSockets).  The command-line tool is in `cmd/cxtool`.
package sorcer
