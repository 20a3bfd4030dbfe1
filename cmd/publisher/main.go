package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/akashipov/userdirectory/internal/broker"
	"github.com/nats-io/nats.go"
)

// Publishes sample users from a JSON array onto the import subject and
// prints what the server answered for each of them.
func main() {
	p := flag.String("f", "statics/seed/users.json", "Path to a JSON array of users")
	n := flag.String("n", nats.DefaultURL, "Nats URL to connect")
	subj := flag.String("subj", "users.import", "Nats subject to publish to")
	timeout := flag.Duration("t", 2*time.Second, "Time to wait for each reply")
	flag.Parse()

	sc, err := nats.Connect(*n)
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	defer sc.Close()

	data, err := os.ReadFile(*p)
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	var users []json.RawMessage
	if err = json.Unmarshal(data, &users); err != nil {
		fmt.Println("Problem with json data: " + err.Error())
		return
	}
	for i, u := range users {
		msg, err := sc.Request(*subj, u, *timeout)
		if err != nil {
			fmt.Printf("#%d: %s\n", i, err.Error())
			continue
		}
		var rep broker.Reply
		if err = json.Unmarshal(msg.Data, &rep); err != nil {
			fmt.Printf("#%d: bad reply: %s\n", i, err.Error())
			continue
		}
		if rep.Error != nil {
			fmt.Printf("#%d: rejected: %s\n", i, rep.Error.Error())
			continue
		}
		fmt.Printf("#%d: created %s\n", i, rep.ID)
	}
}
