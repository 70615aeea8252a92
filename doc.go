// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Ryan Johnson

// Package vnc implements the viewer side of the RFB protocol (RFC 6143)
// for hosts that run a single-threaded event loop.
//
// A Client connects synchronously, then receives updates one unit of work
// at a time through Pump, which a Reactor calls whenever the socket is
// readable. The framebuffer is kept in a fixed 32-bit true colour format;
// attached Viewers are told when it changes size or content. Keyboard and
// pointer input is translated to keysyms and button masks on the way out.
//
// # Basic Usage
//
//	loop, err := reactor.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer loop.Close()
//
//	client := vnc.NewClient(
//		vnc.WithReactor(loop),
//		vnc.WithLogger(&vnc.StandardLogger{}),
//	)
//	if err := client.Connect(ctx, "localhost:1", "secret"); err != nil {
//		log.Fatal(err)
//	}
//	defer client.Disconnect()
//
//	surface := display.New(1024, 768)
//	surface.SetClient(client)
//
//	_ = loop.Run(ctx)
//
// # Endpoints
//
// Endpoints follow the usual VNC conventions: "host" and "host:N" with a
// display number below 100 add 5900, "host::port" is a literal port, and
// "unix:/path" or an absolute path selects a Unix socket.
//
// # Input Events
//
//	client.SendChar('a')                           // press and release
//	client.SendKey(keysym.KeyReturn, true)         // press
//	client.SendMouseEvent(100, 100, vnc.MouseLeft) // framebuffer pixels
//
// Input that has no keysym is not sent; the call returns an error with code
// ErrUnmappedInput and the connection stays up.
//
// # Error Handling
//
//	if vnc.IsVNCError(err, vnc.ErrAuthentication) {
//		log.Printf("Authentication failed: %v", err)
//	}
package vnc
