// Package discovery locates a control surface on the network.
//
// A Loupedeck Live attached over USB shows up as a network interface with
// an address in 100.127.x.y; the device itself answers at 100.127.x.1 on
// port 80. Simulated panels started with "xpdeck sim" advertise themselves
// over multicast DNS as "_xpdeck._tcp" services instead.
//
// # Discovery Process
//
//  1. Scan local interface addresses for the USB network
//  2. Browse mDNS for simulated panels until the timeout expires
//  3. If nothing was found, wait the retry delay and start over
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	ep, err := scanner.Find(ctx, 5*time.Second)
//	if err != nil {
//	    return err // ctx was cancelled
//	}
//	dev, err := device.Dial(ctx, ep.Addr())
//
// # Network Requirements
//
// mDNS browsing needs multicast on the local segment (UDP port 5353). The
// interface scan needs no network access.
package discovery
