package runtrigger

import (
	"context"
	"encoding/json"
)

// buildPacket implements the non-offloading half of C5: given a raw
// payload value and its declared type, produce the tagged IOPacket variant
// spec §4.5 describes.
func buildPacket(rawValue json.RawMessage, valueType string) IOPacket {
	if len(rawValue) == 0 {
		return IOPacket{DataType: valueType}
	}

	if valueType == "application/json" {
		data := string(rawValue)
		return IOPacket{Data: &data, DataType: valueType}
	}

	var asString string
	if err := json.Unmarshal(rawValue, &asString); err == nil {
		return IOPacket{Data: &asString, DataType: valueType}
	}

	return IOPacket{DataType: valueType}
}

// handleMetadataPacket implements the in-process metadata packet helper:
// metadata follows the same tagged-variant discipline as payload but is
// never offloaded.
func handleMetadataPacket(metadata json.RawMessage, metadataType string) IOPacket {
	return buildPacket(metadata, metadataType)
}

// offloadDecision is packetRequiresOffloading's result.
type offloadDecision struct {
	NeedsOffloading bool
	Size            int
}

// packetRequiresOffloading decides whether packet.Data exceeds thresholdBytes.
// A packet with no inline Data never needs offloading.
func packetRequiresOffloading(packet IOPacket, thresholdBytes int) offloadDecision {
	if packet.Data == nil {
		return offloadDecision{}
	}
	size := len(*packet.Data)
	return offloadDecision{NeedsOffloading: size > thresholdBytes, Size: size}
}

// handlePayloadPacket implements the full C5 contract: build the packet,
// then offload it to object storage under
// "<runFriendlyId>/payload.json" when it exceeds the threshold, replacing
// Data with the storage locator and DataType with PacketStoreDataType.
func (s *Service) handlePayloadPacket(ctx context.Context, runFriendlyID string, rawValue json.RawMessage, valueType string, environment Environment) (IOPacket, error) {
	packet := buildPacket(rawValue, valueType)

	decision := packetRequiresOffloading(packet, s.payloadOffloadThresholdBytes)
	if !decision.NeedsOffloading {
		return packet, nil
	}

	filename := runFriendlyID + "/payload.json"
	if err := s.objectStore.Upload(ctx, filename, []byte(*packet.Data), packet.DataType, environment); err != nil {
		return IOPacket{}, err
	}

	return IOPacket{Data: &filename, DataType: PacketStoreDataType}, nil
}
