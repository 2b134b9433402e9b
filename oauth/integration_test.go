package oauth

import (
	"context"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/twitchplay/db"
	"github.com/onnwee/twitchplay/testutil"
)

func TestRefreshStoredTwitchToken(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	store, err := db.NewStore(database, "")
	if err != nil {
		t.Fatal(err)
	}
	const provider = "test-twitch-refresh"
	t.Cleanup(func() { database.Exec(`DELETE FROM oauth_tokens WHERE provider=$1`, provider) })

	if err := store.SaveToken(ctx, provider, db.Token{Access: "old", Refresh: "rt-old", Expiry: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	idp := testutil.NewMockTwitchServer(t)
	idp.MockOAuthTokenResponse("fresh", "rt-new", 14400)
	fn := refreshWith(&oauth2.Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: idp.URL + "/oauth2/token", AuthStyle: oauth2.AuthStyleInParams},
	})

	refreshed, err := refreshOnce(ctx, store, provider, 15*time.Minute, fn)
	if err != nil || !refreshed {
		t.Fatalf("refreshOnce = %v, %v", refreshed, err)
	}
	got, err := store.GetToken(ctx, provider)
	if err != nil {
		t.Fatal(err)
	}
	if got.Access != "fresh" || got.Refresh != "rt-new" || got.Scope != "chat:read chat:edit" {
		t.Errorf("stored token = %+v", got)
	}

	chatToken, err := ResolveChatToken(ctx, "", tokenAlias{store, provider})
	if err != nil || chatToken != "oauth:fresh" {
		t.Errorf("ResolveChatToken = %q, %v", chatToken, err)
	}
}

// tokenAlias serves provider's row under ProviderTwitch so the test does not
// touch a real twitch credential.
type tokenAlias struct {
	*db.Store
	provider string
}

func (a tokenAlias) GetToken(ctx context.Context, _ string) (db.Token, error) {
	return a.Store.GetToken(ctx, a.provider)
}
