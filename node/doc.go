// Package node runs a control.Controller as a long-lived service.
//
// A Node publishes a status snapshot on every loop tick, reconnects a lost link at a bounded rate,
// enables the motors after every (re)connect, and translates motor commands into control calls:
//
//	n, _ := node.New(ctrl, node.WithPublisher(pub))
//	n.Start()
//	defer n.Close()
//	err := n.Run(ctx)
//
// Commands can be submitted from any goroutine with Submit, they are executed by the command loop
// of Run. ParseCommand reads the line protocol of the interactive console.
package node
