package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/gousb"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
)

// USBOpener opens a printer by vendor and product id through libusb.
type USBOpener struct {
	VendorID  gousb.ID
	ProductID gousb.ID

	mu  sync.Mutex
	usb *gousb.Context
}

func NewUSBOpener(vendorID, productID int) *USBOpener {
	return &USBOpener{VendorID: gousb.ID(vendorID), ProductID: gousb.ID(productID)}
}

func (o *USBOpener) String() string {
	return fmt.Sprintf("usb://%s:%s", o.VendorID, o.ProductID)
}

func (o *USBOpener) Open(_ context.Context) (DeviceHandle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.usb == nil {
		o.usb = gousb.NewContext()
	}

	dev, err := o.usb.OpenDeviceWithVIDPID(o.VendorID, o.ProductID)
	if err != nil {
		if dev != nil {
			dev.Close()
		}
		return nil, fmt.Errorf("%w: %v", model.ErrDeviceUnavailable, err)
	}
	if dev == nil {
		return nil, model.ErrDeviceNotFound
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		return nil, fmt.Errorf("%w: detach kernel driver: %v", model.ErrDeviceUnavailable, err)
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("%w: claim interface: %v", model.ErrDeviceUnavailable, err)
	}

	ep, err := bulkOutEndpoint(intf)
	if err != nil {
		done()
		dev.Close()
		return nil, err
	}

	return &usbHandle{dev: dev, release: done, ep: ep}, nil
}

// Close releases the libusb context.
func (o *USBOpener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.usb == nil {
		return nil
	}
	err := o.usb.Close()
	o.usb = nil
	return err
}

func bulkOutEndpoint(intf *gousb.Interface) (*gousb.OutEndpoint, error) {
	for _, desc := range intf.Setting.Endpoints {
		if desc.Direction == gousb.EndpointDirectionOut && desc.TransferType == gousb.TransferTypeBulk {
			ep, err := intf.OutEndpoint(desc.Number)
			if err != nil {
				return nil, fmt.Errorf("%w: open endpoint %d: %v", model.ErrDeviceUnavailable, desc.Number, err)
			}
			return ep, nil
		}
	}
	return nil, fmt.Errorf("%w: no bulk OUT endpoint on %s", model.ErrDeviceUnavailable, intf)
}

type usbHandle struct {
	dev     *gousb.Device
	release func()
	ep      *gousb.OutEndpoint
}

func (h *usbHandle) Write(p []byte) (int, error) {
	n, err := h.ep.Write(p)
	if err != nil {
		return n, fmt.Errorf("usb write failed: %w", err)
	}
	return n, nil
}

func (h *usbHandle) Close() error {
	h.release()
	return h.dev.Close()
}
