package rpc

// TopicLocks returns the number of per topic locks currently allocated.
func TopicLocks(c *Client) int { return c.topicLocks.Size() }
