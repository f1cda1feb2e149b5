package location

import (
	"context"
	"time"
)

// Permissions is the outcome of RequestPermissions.
type Permissions struct {
	Foreground bool
	Background bool
	Message    string
}

// RequestPermissions asks for foreground access and, once granted, for
// background access. With background access it registers the background
// update task, whose deliveries flow into Sink.
func (c *Cache) RequestPermissions(ctx context.Context) Permissions {
	var p Permissions

	fg, err := c.provider.RequestForegroundPermission(ctx)
	if err != nil {
		c.logger.Printf("error requesting foreground permission: %v", err)
	}
	p.Foreground = err == nil && fg == PermissionGranted
	c.setGranted(p.Foreground)

	if p.Foreground {
		bg, err := c.provider.RequestBackgroundPermission(ctx)
		if err != nil {
			c.logger.Printf("error requesting background permission: %v", err)
		}
		p.Background = err == nil && bg == PermissionGranted
	}

	if p.Foreground && p.Background {
		p.Message = "Location permissions granted"
	}

	if p.Background {
		c.startBackground(ctx)
	}
	return p
}

func (c *Cache) startBackground(ctx context.Context) {
	c.bgMu.Lock()
	defer c.bgMu.Unlock()
	if c.bgRegistered {
		return
	}
	if err := c.provider.StartUpdates(ctx, BackgroundTaskName, DefaultUpdateOptions(), c.updates); err != nil {
		c.logger.Printf("error starting background location updates: %v", err)
		return
	}
	c.bgRegistered = true
}

func (c *Cache) stopBackground() {
	c.bgMu.Lock()
	defer c.bgMu.Unlock()
	if !c.bgRegistered {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	registered, err := c.provider.IsRegistered(ctx, BackgroundTaskName)
	if err != nil {
		c.logger.Printf("error checking background location task: %v", err)
		return
	}
	if registered {
		if err := c.provider.StopUpdates(ctx, BackgroundTaskName); err != nil {
			c.logger.Printf("error stopping background location updates: %v", err)
			return
		}
	}
	c.bgRegistered = false
}
