package runtrigger

import "context"

// checkEntitlement implements C3: skipped entirely for DEVELOPMENT
// environments; otherwise a nil reply or hasAccess=true lets the request
// through.
func (s *Service) checkEntitlement(ctx context.Context, environment Environment) error {
	if environment.IsDevelopment() {
		return nil
	}
	if s.entitlement == nil {
		return nil
	}

	reply, err := s.entitlement.Get(ctx, environment.OrganizationID)
	if err != nil {
		return err
	}
	if reply != nil && !reply.HasAccess {
		return &OutOfEntitlementError{OrganizationID: environment.OrganizationID.String()}
	}
	return nil
}
