// Package harness runs replication scenarios against two in-process peers.
//
// A scenario is a YAML file listing HTTP steps sent to node "a" or node
// "b", each optionally checked against an expected status and a subset of
// the JSON response body. Both nodes run the full stack (SQLite store,
// services, replicators, peer transport, REST surface) and replicate to
// each other over real loopback HTTP. Every request either node receives
// is recorded in a trace, so a scenario can assert how many writes crossed
// the boundary and a golden file can pin the exact exchange.
//
// External ids are deterministic: node a mints 0000000a-0000-7000-8000-N
// and node b mints 0000000b-0000-7000-8000-N, N counting from 1.
//
// Example:
//
//	name: user_roundtrip
//	steps:
//	  - node: a
//	    method: POST
//	    path: /users
//	    body: {name: Ada, email: ada@example.com}
//	    expect: {status: 201}
//	    save: {user: external_id}
//	  - node: b
//	    method: GET
//	    path: /users/${user}
//	    expect: {status: 200, body: {name: Ada}}
//	assertions:
//	  - type: received
//	    node: b
//	    replicated: true
//	    count: 1
package harness
