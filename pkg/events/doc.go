/*
Package events provides an in-memory event broker for live-tailing
Chronicle activity, independent of the durable writes the supervisor's
sink performs against the store and graph on every event.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	for event := range sub {
		fmt.Println(event.Description)
	}

Publish is non-blocking and fire-and-forget: a slow or absent subscriber
never stalls the collectors feeding the broker. No CLI command subscribes
to the broker.
*/
package events
