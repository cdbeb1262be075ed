// Command recur prints the occurrences of RFC 5545 recurrence rules.
//
//	recur -rules standup.txt -from 2018-11-01T00:00:00Z -to 2018-12-01T00:00:00Z
//	recur -ics calendar.ics -format xcal
//	echo "DTSTART:20240101T090000Z\nRRULE:FREQ=DAILY" | recur -next 2024-03-01T00:00:00Z
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "recur:", err)
		os.Exit(1)
	}
}
