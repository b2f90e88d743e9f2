// Package client implements the catalog protocol client.
//
//	c := client.New(client.WithHost("10.0.0.5"), client.WithPort(12345))
//	if err := c.Connect(ctx); err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	results, err := c.Search(ctx, "Milk")
//
// Connect keeps retrying until the server accepts or ctx ends. After a
// transport failure the connection is closed and Connect must be called
// again; a malformed reply fails only the request that received it.
package client
