package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

type listResponse struct {
	Users []struct {
		ID string `json:"_id"`
	} `json:"users"`
}

func collectIDs(cl *resty.Client) ([]string, error) {
	var res listResponse
	resp, err := cl.R().SetQueryParam("limit", "100").SetResult(&res).Get("/api/users")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("list answered %d: %s", resp.StatusCode(), resp.String())
	}
	ids := make([]string, 0, len(res.Users))
	for _, u := range res.Users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func main() {
	base := flag.String("u", "http://localhost:8000", "Base URL of the server")
	n := flag.Int("r", 10000, "Number of requests")
	c := flag.Int("c", 50, "Number of concurrent workers")
	flag.Parse()

	cl := resty.New().SetBaseURL(*base)
	ids, err := collectIDs(cl)
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	if len(ids) == 0 {
		fmt.Println("No users to request, seed the server first")
		return
	}

	jobs := make(chan int)
	var (
		mu       sync.Mutex
		statuses = map[int]int{}
		failures int
		w        sync.WaitGroup
	)
	start := time.Now()
	for i := 0; i < *c; i++ {
		w.Add(1)
		go func() {
			defer w.Done()
			for range jobs {
				id := ids[rand.Intn(len(ids))]
				resp, err := cl.R().Get("/api/users/" + id)
				mu.Lock()
				if err != nil {
					failures++
				} else {
					statuses[resp.StatusCode()]++
				}
				mu.Unlock()
			}
		}()
	}
	for i := 0; i < *n; i++ {
		jobs <- i
	}
	close(jobs)
	w.Wait()
	elapsed := time.Since(start)

	fmt.Printf("%d requests in %s (%.0f req/s)\n", *n, elapsed, float64(*n)/elapsed.Seconds())
	for status, count := range statuses {
		fmt.Printf("  status %d: %d\n", status, count)
	}
	if failures > 0 {
		fmt.Printf("  transport errors: %d\n", failures)
	}
}
