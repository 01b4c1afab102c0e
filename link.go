package ipcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fsyncd/ipcmd/args"
)

// DeviceRef selects the network device or device group an operation
// targets. Construct with [Device] or [DeviceGroup]. The zero value has no
// argument encoding and fails serialization — required fields left unset
// are surfaced as a configuration bug, not emitted as malformed arguments.
type DeviceRef struct {
	kind  deviceRefKind
	name  string
	group uint32
}

type deviceRefKind int

const (
	deviceRefUnset deviceRefKind = iota
	deviceRefName
	deviceRefGroup
)

// Device references a network device by name.
func Device(name string) DeviceRef {
	return DeviceRef{kind: deviceRefName, name: name}
}

// DeviceGroup references a device group by id.
func DeviceGroup(id uint32) DeviceRef {
	return DeviceRef{kind: deviceRefGroup, group: id}
}

// Ref returns a pointer for optional config fields.
func (d DeviceRef) Ref() *DeviceRef { return &d }

func (d DeviceRef) AppendTokens(dst []string) ([]string, error) {
	switch d.kind {
	case deviceRefName:
		return append(dst, "dev", d.name), nil
	case deviceRefGroup:
		return append(dst, "group", strconv.FormatUint(uint64(d.group), 10)), nil
	default:
		return nil, fmt.Errorf("%w: unset device reference", args.ErrNotRepresentable)
	}
}

// LinkState is the administrative state of a device.
type LinkState string

const (
	LinkUp   LinkState = "up"
	LinkDown LinkState = "down"
)

// Ref returns a pointer for optional config fields.
func (s LinkState) Ref() *LinkState { return &s }

func (s LinkState) AppendTokens(dst []string) ([]string, error) {
	switch s {
	case LinkUp, LinkDown:
		return append(dst, string(s)), nil
	default:
		return nil, fmt.Errorf("%w: link state %q", args.ErrNotRepresentable, string(s))
	}
}

// Master sets or clears a device's master device. Construct with
// [SetMaster] or [NoMaster].
type Master struct {
	device  string
	release bool
}

// SetMaster enslaves the device to the named master.
func SetMaster(device string) *Master { return &Master{device: device} }

// NoMaster releases the device from its master.
func NoMaster() *Master { return &Master{release: true} }

func (m Master) AppendTokens(dst []string) ([]string, error) {
	if m.release {
		return append(dst, "nomaster"), nil
	}
	if m.device != "" {
		return append(dst, "master", m.device), nil
	}
	return nil, fmt.Errorf("%w: unset master", args.ErrNotRepresentable)
}

// XDPMode selects how the BPF program is attached to the device.
type XDPMode string

const (
	// XDPAuto lets the kernel choose the best available mode.
	XDPAuto XDPMode = "xdp"
	// XDPGeneric uses the slow generic fallback mode.
	XDPGeneric XDPMode = "xdpgeneric"
	// XDPDriver uses a fast driver based mode, erroring if unavailable.
	XDPDriver XDPMode = "xdpdrv"
	// XDPOffload uses hardware offload.
	XDPOffload XDPMode = "xdpoffload"
)

// XDP sets or unsets a BPF program run on every packet at driver level.
// Construct with [XDPOff], [XDPObject] or [XDPPinned].
type XDP struct {
	kind    xdpKind
	mode    XDPMode
	path    string
	section string
	verbose bool
}

type xdpKind int

const (
	xdpUnset xdpKind = iota
	xdpOff
	xdpObject
	xdpPinned
)

// XDPOff detaches any attached XDP program.
func XDPOff() *XDP { return &XDP{kind: xdpOff} }

// XDPObject attaches the program from an ELF object file. section selects
// the ELF section to load ("" for the default).
func XDPObject(mode XDPMode, path, section string, verbose bool) *XDP {
	return &XDP{kind: xdpObject, mode: mode, path: path, section: section, verbose: verbose}
}

// XDPPinned attaches a program already pinned in the BPF filesystem.
func XDPPinned(mode XDPMode, path string, verbose bool) *XDP {
	return &XDP{kind: xdpPinned, mode: mode, path: path, verbose: verbose}
}

func (x XDP) AppendTokens(dst []string) ([]string, error) {
	mode := x.mode
	if mode == "" {
		mode = XDPAuto
	}
	switch x.kind {
	case xdpOff:
		return append(dst, "xdp", "off"), nil
	case xdpObject:
		dst = append(dst, string(mode), "object", x.path)
		if x.section != "" {
			dst = append(dst, "section", x.section)
		}
		if x.verbose {
			dst = append(dst, "verbose")
		}
		return dst, nil
	case xdpPinned:
		dst = append(dst, string(mode), "pinned", x.path)
		if x.verbose {
			dst = append(dst, "verbose")
		}
		return dst, nil
	default:
		return nil, fmt.Errorf("%w: unset xdp configuration", args.ErrNotRepresentable)
	}
}

// LinkAdd describes a virtual link to create.
type LinkAdd struct {
	// Name of the device.
	Name string
	// The physical device to operate on.
	Device *string `ip:"link"`
	// Transmit queue length of the device.
	TxQueueLen *uint32 `ip:"txqueuelen"`
	// Station address of the device.
	Address *string
	// Link layer broadcast address.
	Broadcast *string
	// Maximum transmission unit for the device.
	MTU *uint32
	// Desired index of the device.
	Index *uint32
	// Number of transmit queues for the device.
	NumTxQueues *uint32 `ip:"numtxqueues"`
	// Number of receive queues for the device.
	NumRxQueues *uint32 `ip:"numrxqueues"`
	// Maximum size of a Generic Segment Offload packet the device accepts.
	GSOMaxSize *uint32 `ip:"gso_max_size"`
	// Maximum number of Generic Segment Offload segments the device accepts.
	GSOMaxSegs *uint32 `ip:"gso_max_segs"`
	// Type of the device.
	Type string `ip:"type"`
}

// LinkDelete describes a virtual link to remove.
type LinkDelete struct {
	// The device or group to operate on.
	Device DeviceRef
	// Type of the device.
	Type string `ip:"type"`
}

// LinkSet changes device attributes. Boolean fields render as "name on" /
// "name off" token pairs.
type LinkSet struct {
	// The device or group to operate on.
	Device DeviceRef
	// Change the administrative state of the device.
	State *LinkState
	// Enable or disable the use of the Address Resolution Protocol.
	ARP *bool
	// Enable or disable support for multicast packets.
	Multicast *bool
	// Enable or disable reception of all hardware multicast packets.
	AllMulticast *bool
	// Enable or disable promiscuous listening mode.
	Promiscuous *bool `ip:"promisc"`
	// Indicate that a protocol error has been detected.
	ProtoDown *bool
	// Enable or disable the use of trailer encapsulations.
	Trailers *bool
	// Transmit queue length of the device.
	TxQueueLen *uint32 `ip:"txqueuelen"`
	// Change the name of the device.
	NewName *string `ip:"name"`
	// Station address of the device.
	Address *string
	// Link layer broadcast address.
	Broadcast *string
	// Maximum transmission unit for the device.
	MTU *uint32
	// Move the device to the supplied network namespace or pid.
	Namespace *string `ip:"netns"`
	// Peer netnsid for a cross-netns interface.
	LinkNetnsID *uint32 `ip:"link-netnsid"`
	// Set or unset the master device of the device.
	Master *Master
	// Enslave to a virtual routing and forwarding master.
	VRF *string
	// IPv6 address generation mode.
	AddrGenMode *string `ip:"addrgenmode"`
	// Set or unset a BPF program run on every packet at driver level.
	XDP *XDP
	// Type of the device.
	Type *string
}

// LinkShow filters the devices to display.
type LinkShow struct {
	// The network device to show.
	Device *DeviceRef
	// Only display running interfaces. Display-only; never serialized.
	State *LinkState `ip:"-"`
	// Master device which enslaves the devices to show.
	Master *string
	// VRF which enslaves the devices to show.
	VRF *string
	// Type of the devices to show.
	Type *string
}

// XDPProgram identifies an attached BPF program.
type XDPProgram struct {
	ID uint32 `json:"id"`
}

// XDPInfo is the attached XDP state reported by ip link show.
type XDPInfo struct {
	Mode    uint32      `json:"mode"`
	Program *XDPProgram `json:"prog"`
}

// Link is one device entry of ip link show output.
type Link struct {
	Index      int      `json:"ifindex"`
	Name       string   `json:"ifname"`
	Flags      []string `json:"flags"`
	MTU        int      `json:"mtu"`
	QDisc      string   `json:"qdisc"`
	State      string   `json:"operstate"`
	LinkMode   string   `json:"linkmode"`
	Group      string   `json:"group"`
	TxQueueLen int      `json:"txqlen"`
	LinkType   string   `json:"link_type"`
	Address    string   `json:"address"`
	Broadcast  string   `json:"broadcast"`
	XDP        *XDPInfo `json:"xdp"`
}

// LinkCmd groups network device operations (ip link).
type LinkCmd struct {
	client *Client
}

// Link returns the network device command facade.
func (c *Client) Link() *LinkCmd { return &LinkCmd{client: c} }

// Add creates a virtual link.
func (l *LinkCmd) Add(ctx context.Context, cfg LinkAdd) error {
	argv, err := marshalArgs([]string{"link", "add"}, cfg)
	if err != nil {
		return err
	}
	_, err = l.client.run(ctx, argv, false)
	return err
}

// Delete removes a virtual link.
func (l *LinkCmd) Delete(ctx context.Context, cfg LinkDelete) error {
	argv, err := marshalArgs([]string{"link", "delete"}, cfg)
	if err != nil {
		return err
	}
	_, err = l.client.run(ctx, argv, false)
	return err
}

// Set changes device attributes.
func (l *LinkCmd) Set(ctx context.Context, cfg LinkSet) error {
	argv, err := marshalArgs([]string{"link", "set"}, cfg)
	if err != nil {
		return err
	}
	_, err = l.client.run(ctx, argv, false)
	return err
}

// Show lists device attributes. A nil cfg lists all devices.
func (l *LinkCmd) Show(ctx context.Context, cfg *LinkShow) ([]Link, error) {
	argv := []string{"link", "show"}
	if cfg != nil {
		var err error
		argv, err = marshalArgs(argv, *cfg)
		if err != nil {
			return nil, err
		}
	}
	out, err := l.client.run(ctx, argv, false)
	if err != nil {
		return nil, err
	}
	var links []Link
	if err := json.Unmarshal([]byte(out), &links); err != nil {
		return nil, fmt.Errorf("ipcmd: decode link show: %w", err)
	}
	return links, nil
}

// marshalArgs serializes cfg with the on/off boolean convention and
// appends its tokens after the fixed command words.
func marshalArgs(cmd []string, cfg any) ([]string, error) {
	tokens, err := args.Marshal(cfg, args.BoolOnOff)
	if err != nil {
		return nil, fmt.Errorf("ipcmd: serialize options: %w", err)
	}
	return append(cmd, tokens...), nil
}
