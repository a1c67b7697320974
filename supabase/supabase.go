package supabase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	supa "github.com/nedpals/supabase-go"
)

const (
	supabaseUploadTimeout = time.Second * 10
)

// Client provides an interface onto the Supabase platform.
// It hides the underlying open source supabase library and adds reconnection and timeout logic.
type Client struct {
	url     string
	anonKey string
	schema  string

	subClient       *supa.Client // the raw client of the underlying supabase library we are using
	shouldReconnect bool         // when true, the subClient is 'dirty' and will be re-created next time a write call is made
	logger          *slog.Logger
}

func New(url, anonKey, schema string) *Client {
	return &Client{
		url:             url,
		anonKey:         anonKey,
		schema:          schema,
		shouldReconnect: true, // the connection will be made lazily on the first request
		logger:          slog.Default().With("host", url),
	}
}

// InsertRows inserts the given rows into the named supabase table.
func (c *Client) InsertRows(tableName string, rows interface{}) error {

	c.reconnectIfNeccesary()

	// The supabase client library doesn't have good timeout support, so here we wrap the call in a timeout
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.subClient.DB.From(tableName).Insert(rows).Execute(nil)
	}()

	select {
	case <-time.After(supabaseUploadTimeout):
		c.setShouldReconnect()
		return errors.New("timed out")
	case err := <-errCh:
		if err != nil {
			c.setShouldReconnect()
		}
		return err
	}
}

// createSubClient creates the open-source supabase library client with sensible defaults.
func (c *Client) createSubClient() error {

	subClient := supa.CreateClient(c.url, c.anonKey)

	// The supabase client library doesn't have a fully featured interface, here we specify options directly by
	// adding headers to the postgrest requests.
	// Use the appropriate schema:
	subClient.DB.AddHeader("Accept-Profile", c.schema)
	subClient.DB.AddHeader("Content-Profile", c.schema)

	c.subClient = subClient

	return nil
}

// setShouldReconnect is called when there has been an error that should trigger a re-connect.
func (c *Client) setShouldReconnect() {
	c.shouldReconnect = true
}

// reconnectIfNeccesary will close the old connection and reconnect if there have been problems with the connection.
func (c *Client) reconnectIfNeccesary() error {
	if !c.shouldReconnect {
		return nil
	}

	err := c.createSubClient()
	if err != nil {
		return fmt.Errorf("create supabase client: %w", err)
	}

	c.shouldReconnect = false

	c.logger.Info("Created supabase client")

	return nil
}
