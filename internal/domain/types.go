package domain

// User is a user as stored locally.
type User struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

// UserEnvelope is the externally visible shape of a user. It is the body of
// POST/PUT /users, both from external callers and from the peer.
type UserEnvelope struct {
	ExternalID string `json:"external_id,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

// Envelope returns the propagation snapshot of u.
func (u User) Envelope() UserEnvelope {
	return UserEnvelope{
		ExternalID: u.ExternalID,
		Name:       u.Name,
		Email:      u.Email,
	}
}

// DeliveryAgent is a delivery agent as stored locally. Agents are not
// replicated on their own; they cross the boundary inside order envelopes.
type DeliveryAgent struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
}

// DeliveryInput is the body of POST/PUT /deliveries.
type DeliveryInput struct {
	ExternalID string `json:"external_id,omitempty"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
}

// Order is an order as read from the local store. UserID and DeliveryAgentID
// are private keys; the external ids and the agent snapshot are joined in.
type Order struct {
	ID                 int64  `json:"id"`
	ExternalID         string `json:"external_id"`
	Description        string `json:"description"`
	Value              Money  `json:"value"`
	UserID             int64  `json:"-"`
	DeliveryAgentID    int64  `json:"-"`
	UserExternalID     string `json:"user_external_id"`
	DeliveryExternalID string `json:"delivery_external_id"`
	DeliveryName       string `json:"delivery_name"`
	DeliveryPhone      string `json:"delivery_phone"`
}

// OrderEnvelope is the externally visible shape of an order: the body of
// POST/PUT /orders and of order propagation. References are by external id.
//
// DeliveryName and DeliveryPhone are a snapshot of the agent. A propagated
// order carries them so the receiving peer can materialize the agent.
type OrderEnvelope struct {
	ExternalID         string `json:"external_id,omitempty"`
	Description        string `json:"description"`
	Value              *Money `json:"value"`
	UserExternalID     string `json:"user_external_id"`
	DeliveryExternalID string `json:"delivery_external_id"`
	DeliveryName       string `json:"delivery_name,omitempty"`
	DeliveryPhone      string `json:"delivery_phone,omitempty"`
}

// Envelope returns the propagation snapshot of o.
func (o Order) Envelope() OrderEnvelope {
	v := o.Value
	return OrderEnvelope{
		ExternalID:         o.ExternalID,
		Description:        o.Description,
		Value:              &v,
		UserExternalID:     o.UserExternalID,
		DeliveryExternalID: o.DeliveryExternalID,
		DeliveryName:       o.DeliveryName,
		DeliveryPhone:      o.DeliveryPhone,
	}
}

// Agent returns the delivery agent snapshot carried by the envelope.
func (e OrderEnvelope) Agent() DeliveryInput {
	return DeliveryInput{
		ExternalID: e.DeliveryExternalID,
		Name:       e.DeliveryName,
		Phone:      e.DeliveryPhone,
	}
}
