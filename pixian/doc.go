// Package pixian is a Go client for the Pixian.ai background removal API.
//
//	client, err := pixian.NewClient(apiID, apiSecret)
//	if err != nil {
//		log.Fatal(err)
//	}
//	img, err := client.RemoveBackground(ctx, pixian.FromPath("in.jpg"), pixian.Options{
//		"background_color": pixian.String("#ffffff"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	_ = img.Save("out.png")
//
// Option keys use underscores and are sent with dots (background_color is sent as
// background.color). Params is the typed alternative that is validated locally.
//
// # Errors
//
// Every call makes at most one request and never retries. Use errors.As to tell apart
// ConfigurationError, ValidationError, RemoteError, TransportError and DecodeError.
package pixian
