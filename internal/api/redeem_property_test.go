package api_test

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/wallet-finder/internal/models"
	"github.com/wallet-finder/internal/types"
)

// Property: a redeem code is single-use no matter how many concurrent
// attempts race for it. Any interleaving of N attempts yields exactly one
// success; every other attempt sees the same not-redeemable 404.
func TestRedeemSingleUseProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("exactly one of N concurrent redemptions succeeds", prop.ForAll(
		func(attempts int) bool {
			env := newTestEnv()
			env.users.add(&models.User{ID: 1, Plan: types.PlanBasic})
			env.redeemKeys.add(&models.RedeemKey{Token: "RACE-CODE", Coins: 100})

			codes := make([]int, attempts)
			var wg sync.WaitGroup
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func(slot int) {
					defer wg.Done()
					rec := env.do(t, http.MethodPost, "/api/redeem", "", map[string]interface{}{
						"redeemKey": "RACE-CODE",
						"userId":    1,
					})
					codes[slot] = rec.Code
				}(i)
			}
			wg.Wait()

			successes := 0
			for _, code := range codes {
				switch code {
				case http.StatusOK:
					successes++
				case http.StatusNotFound:
				default:
					return false
				}
			}
			return successes == 1
		},
		gen.IntRange(1, 20),
	))

	properties.Property("redeemed coins match the code's reward", prop.ForAll(
		func(coins int64) bool {
			env := newTestEnv()
			env.users.add(&models.User{ID: 2, Plan: types.PlanBasic})
			env.redeemKeys.add(&models.RedeemKey{Token: "REWARD-CODE", Coins: coins})

			rec := env.do(t, http.MethodPost, "/api/redeem", "", map[string]interface{}{
				"redeemKey": "REWARD-CODE",
				"userId":    2,
			})
			if rec.Code != http.StatusOK {
				return false
			}

			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				return false
			}
			return body["coins"] == float64(coins)
		},
		gen.Int64Range(1, 1_000_000),
	))

	properties.TestingRun(t)
}
